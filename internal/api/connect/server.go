package connect

import (
	"net/http"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// NewServer creates an HTTP server for the control service with h2c
// (HTTP/2 cleartext) support. Every procedure requires token.
func NewServer(addr, token string, service *ControlService) *http.Server {
	mux := http.NewServeMux()
	path, handler := service.Handler(connect.WithInterceptors(NewTokenInterceptor(token)))
	mux.Handle(path, handler)

	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
