package crap

import (
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ReverseProxy is a http.Handler forwarding the requests a Server receives
// to an upstream HTTP server.
type ReverseProxy struct {
	*url.URL                        // Upstream server URL
	transports chan *http.Transport // available http.Transports
}

// NewReverseProxy returns a new ReverseProxy using at most maxConnections
// concurrent upstream connections, or 512 if maxConnections is less than one.
func NewReverseProxy(u *url.URL, maxConnections int) (rp *ReverseProxy) {
	if maxConnections < 1 {
		maxConnections = 512
	}

	transports := make(chan *http.Transport, maxConnections)
	for i := 0; i < cap(transports); i++ {
		transports <- &http.Transport{
			DisableCompression:  true,
			MaxIdleConnsPerHost: 1,
		}
	}

	return &ReverseProxy{
		URL:        u,
		transports: transports,
	}
}

// ServeHTTP forwards req upstream and copies the response to rw.
// Upstream failures are reported as 502 Bad Gateway.
func (rp *ReverseProxy) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	out := req.Clone(req.Context())
	out.RequestURI = ""
	out.URL.Scheme = rp.URL.Scheme
	out.URL.Host = rp.URL.Host

	// Remove "Connection: close" and "Keep-Alive:" headers.
	delete(out.Header, "Keep-Alive")
	if len(out.Header["Connection"]) > 0 {
		var newVv []string
		for _, v := range out.Header["Connection"] {
			if strings.ToLower(v) != "close" {
				newVv = append(newVv, v)
			}
		}
		if len(newVv) > 0 {
			out.Header["Connection"] = newVv
		} else {
			delete(out.Header, "Connection")
		}
	}

	transport := <-rp.transports
	res, err := transport.RoundTrip(out)
	rp.transports <- transport
	if err != nil {
		log.WithError(err).WithField("upstream", rp.URL.String()).Debug("reverse proxy round trip failed")
		http.Error(rw, err.Error(), http.StatusBadGateway)
		return
	}
	defer res.Body.Close()

	dst := rw.Header()
	for k, vv := range res.Header {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	rw.WriteHeader(res.StatusCode)
	io.Copy(rw, res.Body)
}
