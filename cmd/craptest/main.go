package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/linkdata/crap"
	"github.com/sirupsen/logrus"
)

var log = &logrus.Logger{
	Out:   os.Stderr,
	Level: logrus.InfoLevel,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
	Hooks: make(logrus.LevelHooks),
}

type echoTester struct {
	Client *crap.Client
	failed int
}

func (e *echoTester) echo(method, target string, body []byte) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.RequestURI = ""
	resp, err := e.Client.RoundTrip(req)
	if err != nil {
		log.WithError(err).WithField("target", target).Error("round trip failed")
		e.failed++
		return
	}
	defer resp.Body.Close()
	actual, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, actual) && body != nil {
		fmt.Printf("expect:\n[%s]\nactual:\n[%s]\n", body, actual)
		e.failed++
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("%s %s: %s\n", method, target, resp.Status)
		e.failed++
	}
}

func main() {
	count := flag.Int("n", 1000, "number of round trips")
	flag.Parse()

	args := flag.Args()

	if len(args) < 1 {
		log.Fatal("missing required argument: address:port of upstream server")
	}
	client := crap.NewClient(args[0])
	defer client.Close()

	et := &echoTester{Client: client}
	et.echo("GET", "/", nil)
	et.echo("PUT", "/echo", []byte("foo\nbar"))
	et.echo("POST", "/echo", bytes.Repeat([]byte("foobar! "), 16384))
	for n := 0; n < *count; n++ {
		et.echo("PUT", "/echo", []byte("baz"))
	}
	if et.failed > 0 {
		log.Fatalf("%d failures", et.failed)
	}
	log.Info("ok")
}
