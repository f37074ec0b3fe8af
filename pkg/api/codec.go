// Package api defines the chitfund RPC surface: wire messages, procedure
// names, Connect handler constructors and typed clients. Messages are plain
// Go structs encoded as JSON, so any Connect or HTTP/JSON client can call the
// server.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Codec encodes messages as JSON. It registers under the name "json", so it
// serves the application/json content type.
type Codec struct{}

var _ connect.Codec = Codec{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) { return json.Marshal(msg) }

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// CountResponse carries a record count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// Empty is the request of RPCs that take no arguments.
type Empty struct{}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}

// router dispatches a service's procedures by exact path.
type router map[string]http.Handler

func (r router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if h, ok := r[req.URL.Path]; ok {
		h.ServeHTTP(w, req)
		return
	}
	http.NotFound(w, req)
}

func procedureURL(baseURL, procedure string) string {
	return strings.TrimRight(baseURL, "/") + procedure
}
