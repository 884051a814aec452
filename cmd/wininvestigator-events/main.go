// Command wininvestigator-events prints recent events of one channel as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"wininvestigator/internal/eventlog"
	"wininvestigator/internal/logging"
	"wininvestigator/internal/sanitizer"
)

const (
	defaultLookbackMinutes = 10
	defaultMaxEvents       = 256
	defaultLogName         = "application"
)

func main() {
	minutes := flag.Int("minutes", defaultLookbackMinutes, "lookback window in minutes")
	maxEvents := flag.Int("max", defaultMaxEvents, "maximum number of events to return")
	logName := flag.String("log", defaultLogName, "event log channel: application|system|setup or a full channel name")
	provider := flag.String("provider", "", "optional provider name filter (e.g. Microsoft-Windows-WindowsUpdateClient)")
	level := flag.String("level", "", "optional level filter: Critical, Error, Warning, Information, Verbose")
	redact := flag.Bool("redact", false, "mask addresses and account names in messages")
	verbose := flag.Bool("v", false, "debug logging on stderr")
	flag.Parse()

	lvl := "warn"
	if *verbose {
		lvl = "debug"
	}
	log, closeLog, err := logging.New(logging.Options{Level: lvl})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	defer closeLog()

	if *minutes <= 0 {
		*minutes = defaultLookbackMinutes
	}
	if *maxEvents <= 0 {
		*maxEvents = defaultMaxEvents
	}
	start := time.Now().Add(-time.Duration(*minutes) * time.Minute)

	svc := eventlog.NewService(eventlog.NewSource(), log)
	events, err := svc.Query(context.Background(), eventlog.Filter{
		LogName:    channelName(*logName),
		Level:      *level,
		Source:     strings.TrimSpace(*provider),
		MaxResults: *maxEvents,
		Reverse:    true,
		Start:      &start,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if *redact {
		sanitizer.MaskEvents(events)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode JSON: %v\n", err)
		os.Exit(2)
	}
}

// channelName expands the short names accepted on the command line.
func channelName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "application", "":
		return "Application"
	case "system":
		return "System"
	case "setup":
		return "Setup"
	case "security":
		return "Security"
	}
	return strings.TrimSpace(name)
}
