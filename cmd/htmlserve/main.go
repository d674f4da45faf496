package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"taskcal/internal/htmlserve"
	appLog "taskcal/internal/log"
)

func main() {
	dir := flag.String("dir", ".", "Directory whose *.html files are served")
	listen := flag.String("listen", "127.0.0.1:8000", "HTTP listen address")
	flag.Parse()

	srv := &http.Server{
		Addr:              *listen,
		Handler:           otelhttp.NewHandler(htmlserve.NewHandler(*dir), "htmlserve"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("serving html files", "dir", *dir, "listen", "http://"+*listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("htmlserve failed", err)
		os.Exit(1)
	}
}
