package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/linkdata/crap"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
)

var log = &logrus.Logger{
	Out:   os.Stdout,
	Level: logrus.InfoLevel,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
	Hooks: make(logrus.LevelHooks),
}

func newRouter(srv *crap.Server) *httprouter.Router {
	router := httprouter.New()
	router.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		io.WriteString(w, "Hello world!\n")
	})
	router.GET("/hello/:name", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		fmt.Fprintf(w, "Hello, %s!\n", ps.ByName("name"))
	})
	echo := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		io.Copy(w, r.Body)
	}
	router.POST("/echo", echo)
	router.PUT("/echo", echo)
	router.GET("/stats", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		fmt.Fprintf(w, "%v\nsessions %d\nerrors %v\n", srv.Stats.Snapshot(), srv.ActiveSessions(), srv.ServeErrors())
	})
	return router
}

func oncePerSecond(srv *crap.Server) {
	var last crap.Stats
	for range time.Tick(time.Second) {
		now := srv.Stats.Snapshot()
		d := now.Sub(last)
		last = now
		if d.ReadIOPS != 0 || d.WriteIOPS != 0 {
			log.WithFields(logrus.Fields{
				"rps":      d.HeadCount,
				"iops_in":  d.ReadIOPS,
				"mbps_in":  d.ReadBytes * 8 / 1024 / 1024,
				"iops_out": d.WriteIOPS,
				"mbps_out": d.WriteBytes * 8 / 1024 / 1024,
			}).Info("stats")
		}
	}
}

func main() {
	listenAddr := flag.String("listen", crap.DefaultListenAddr, "the address to accept connections on")
	wsAddr := flag.String("ws", "", "if set, the HTTP address to accept websocket connections on at /crap")
	window := flag.Int("window", crap.MaxSendWindowSize, "the per-channel send window")
	netLog := flag.Bool("netlog", false, "log every frame read and written")
	upstream := flag.String("upstream", "", "if set, forward all requests to this HTTP server URL instead of serving the built-in routes")
	profileMode := flag.String("profile", "", "enable profiling, one of cpu, mem, block or mutex")
	flag.Parse()

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile).Stop()
	case "block":
		defer profile.Start(profile.BlockProfile).Stop()
	case "mutex":
		defer profile.Start(profile.MutexProfile).Stop()
	default:
		log.Fatalf("unknown profile mode %q", *profileMode)
	}

	if *netLog {
		log.SetLevel(logrus.DebugLevel)
	}
	cfg := crap.DefaultConfig()
	cfg.SendWindow = *window
	cfg.NetLog = *netLog
	cfg.Logger = log
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	srv := &crap.Server{Config: &cfg}
	if *upstream != "" {
		u, err := url.Parse(*upstream)
		if err != nil {
			log.Fatal(err)
		}
		srv.Handler = crap.NewReverseProxy(u, 0)
	} else {
		srv.Handler = newRouter(srv)
	}
	defer srv.Close()

	if *wsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/crap", srv.WebsocketHandler())
		go func() {
			log.Fatal(http.ListenAndServe(*wsAddr, mux))
		}()
	}

	ln, err := srv.Listen(*listenAddr)
	if err != nil {
		log.Fatal(err)
	}
	log.WithField("addr", ln.Addr().String()).Info("listening")
	go oncePerSecond(srv)
	if err = srv.Serve(ln); err != nil {
		log.Fatal(err)
	}
}
