// Command browse is a terminal client for the worksheet catalog. It drives the
// same listing controller a browser front end would, against a running server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tomgandolfo2/ESLworksheets/internal/client"
	"github.com/tomgandolfo2/ESLworksheets/internal/listing"
	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
)

// urlPrinter shows the shareable query string whenever the applied filters change
type urlPrinter struct{ base string }

func (p urlPrinter) Push(values url.Values) {
	link := p.base + "/worksheets"
	if q := values.Encode(); q != "" {
		link += "?" + q
	}
	printlnFn("Link: " + link)
}

// linkOpener prints the absolute download link for the user to open
type linkOpener struct{ base string }

func (o linkOpener) Open(fileURL string) error {
	if strings.HasPrefix(fileURL, "/") {
		fileURL = o.base + fileURL
	}
	printlnFn("Download: " + fileURL)
	return nil
}

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("ESL_SERVER", "http://localhost:8080"), "worksheet server base URL")
	token := flag.String("token", os.Getenv("ESL_TOKEN"), "session token")
	filter := flag.String("filter", "", "initial filters as a query string, e.g. level=B1&skill=reading")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	initial, err := parseFilter(*filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -filter: %v\n", err)
		os.Exit(2)
	}

	base := strings.TrimRight(*server, "/")
	log := logging.New(os.Stderr, "text", *logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(base, *token)
	ctl := listing.New(listing.Config{
		API:       api,
		Navigator: urlPrinter{base: base},
		Opener:    linkOpener{base: base},
		Log:       log,
	})
	defer ctl.Close()

	if api.HasToken() {
		signIn(ctx, ctl, api)
	}

	ctl.URLChanged(initial)
	ctl.LoadRatings()
	ctl.Wait()
	printItems(ctl.Snapshot())

	runREPL(ctx, ctl, api, bufio.NewScanner(os.Stdin))
}

// parseFilter reads the -filter flag, accepting a pasted "?level=B1" link suffix
func parseFilter(raw string) (url.Values, error) {
	return url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(raw), "?"))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
