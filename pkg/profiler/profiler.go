package profiler

import (
	"log"
	"net/http"
	"net/http/pprof"
	"time"
)

// profilerAddr is deliberately distinct from both the proxy and admin
// listener addresses - pprof is opt-in (GATEWAY_PROFILER=true) diagnostic
// surface, not part of the gateway's normal external interface.
const profilerAddr = "localhost:19841"

// InitialiseProfiler starts a pprof HTTP server on its own listener. The
// caller gates this behind an env var; it is never on by default since
// pprof's handlers have no auth of their own.
func InitialiseProfiler() {
	http.DefaultServeMux = http.NewServeMux()
	go func() {
		server := &http.Server{
			Addr:         profilerAddr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		http.HandleFunc("/debug/pprof/", pprof.Index)
		http.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		http.HandleFunc("/debug/pprof/profile", pprof.Profile)
		http.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		http.HandleFunc("/debug/pprof/trace", pprof.Trace)

		log.Println("profiler listening on", profilerAddr)
		log.Println(server.ListenAndServe())
	}()
}
