package crap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Gateway_ServeHTTP(t *testing.T) {
	if leaktestEnabled {
		defer leaktest.CheckTimeout(t, leaktestTimeout)()
	}
	st := newSrvTester(t)
	defer st.Close()
	gw := &Gateway{Client: st.c}
	ts := httptest.NewServer(gw)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/hello/gateway")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gateway", resp.Header.Get("X-Name"))
	assert.Equal(t, "Hello, gateway!", readBody(t, resp))

	payload := strings.Repeat("x", FrameMaxPayloadSize+1)
	resp, err = ts.Client().Post(ts.URL+"/echo", "text/plain", strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, payload, readBody(t, resp))
	ts.Client().CloseIdleConnections()
}

func Test_Gateway_BadGateway(t *testing.T) {
	if leaktestEnabled {
		defer leaktest.CheckTimeout(t, leaktestTimeout)()
	}
	gw := NewGateway("pipe")
	defer gw.Close()
	gw.Client.Dial = func(ctx context.Context) (io.ReadWriteCloser, error) {
		return nil, errors.New("upstream down")
	}
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream down")
}
