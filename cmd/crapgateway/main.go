package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/linkdata/crap"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var log = &logrus.Logger{
	Out:   os.Stderr,
	Level: logrus.InfoLevel,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
	Hooks: make(logrus.LevelHooks),
}

func main() {
	listenAddr := flag.String("listen", "127.0.0.1:0", "the address the HTTP server should listen on")
	printURL := flag.Bool("printurl", false, "print the listen URL on stdout")

	flag.Parse()

	args := flag.Args()

	if len(args) < 1 {
		log.Fatal("missing required argument: address:port or ws:// URL of upstream server")
	}

	gw := crap.NewGateway(args[0])
	defer gw.Close()
	if upstream := args[0]; strings.HasPrefix(upstream, "ws://") || strings.HasPrefix(upstream, "wss://") {
		gw.Client.Dial = func(ctx context.Context) (io.ReadWriteCloser, error) {
			return crap.DialWebsocket(ctx, upstream)
		}
	}

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		log.Fatal(err)
	}
	defer ln.Close()

	if *printURL {
		fmt.Fprintf(os.Stdout, "http://%s/\n", ln.Addr().String())
	}

	hs := &fasthttp.Server{
		Handler: fasthttpadaptor.NewFastHTTPHandler(gw),
		Name:    "crapgateway",
	}
	if err = hs.Serve(ln); err != nil {
		log.Fatal(err)
	}
}
