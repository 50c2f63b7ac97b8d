package crap

import (
	"io"
	"net/http"
)

// hop-by-hop headers, these are removed when sent to the client.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Gateway receives incoming HTTP requests and forwards them to the
// upstream server using a Client, relaying the responses back.
type Gateway struct {
	Client *Client
}

// NewGateway returns a new Gateway forwarding to the server at addr.
func NewGateway(addr string) *Gateway {
	return &Gateway{
		Client: NewClient(addr),
	}
}

// Close closes the gateway's connections.
func (g *Gateway) Close() error {
	return g.Client.Close()
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := g.Client.RoundTrip(r)
	if err != nil {
		log.WithError(err).WithField("uri", r.RequestURI).Debug("gateway round trip failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	for _, h := range hopHeaders {
		resp.Header.Del(h)
	}
	header := w.Header()
	for k, vv := range resp.Header {
		header[k] = vv
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}
