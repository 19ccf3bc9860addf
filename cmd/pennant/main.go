// Command pennant downloads a config and prints evaluation results as JSON.
//
// Usage:
//
//	PENNANT_SDK_KEY=... pennant [-key flag] [-user id] [-email e] [-country c] [-attr name=value]... [-filter expr]
//
// Without -key every setting is evaluated. -filter takes an expression
// over Key, Value, VariationID, IsDefaultValue, ErrorCode, ErrorMessage
// and FetchTime, e.g. -filter 'IsDefaultValue == false'.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/OrlandoBitencourt/pennant"
	"github.com/OrlandoBitencourt/pennant/internal/fetcher"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
)

func main() {
	// a missing .env file is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], nil, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "pennant:", err)
		}
		os.Exit(1)
	}
}

// attrFlag collects repeated -attr name=value flags.
type attrFlag map[string]any

func (a attrFlag) String() string {
	pairs := make([]string, 0, len(a))
	for k, v := range a {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(pairs, ",")
}

func (a attrFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	a[name] = value
	return nil
}

type options struct {
	key     string
	user    string
	email   string
	country string
	attrs   attrFlag
	filter  string
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	o := options{attrs: attrFlag{}}

	fs := flag.NewFlagSet("pennant", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.key, "key", "", "setting key to evaluate; all settings when empty")
	fs.StringVar(&o.user, "user", "", "user identifier")
	fs.StringVar(&o.email, "email", "", "user email")
	fs.StringVar(&o.country, "country", "", "user country")
	fs.Var(o.attrs, "attr", "custom user attribute as name=value, repeatable")
	fs.StringVar(&o.filter, "filter", "", "expression selecting the results to print")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// evaluationUser returns nil when no user attribute was given.
func (o options) evaluationUser() *pennant.User {
	if o.user == "" && o.email == "" && o.country == "" && len(o.attrs) == 0 {
		return nil
	}
	u := &pennant.User{Identifier: o.user, Email: o.email, Country: o.country}
	if len(o.attrs) > 0 {
		u.Custom = o.attrs
	}
	return u
}

type result struct {
	Key            string    `json:"key"`
	Value          any       `json:"value"`
	VariationID    string    `json:"variation_id,omitempty"`
	IsDefaultValue bool      `json:"is_default_value"`
	ErrorCode      string    `json:"error_code,omitempty"`
	Error          string    `json:"error,omitempty"`
	FetchTime      time.Time `json:"fetch_time,omitzero"`
}

func run(ctx context.Context, args []string, environ map[string]string, stdout, stderr io.Writer) error {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(environ)
	if err != nil {
		return err
	}
	filter, err := CompileFilter(opts.filter)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	client, cleanup, err := newClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := client.Refresh(ctx); err != nil {
		if pennant.IsCancelled(err) || client.Snapshot().IsEmpty() {
			return err
		}
		logger.Warn("refresh failed, evaluating the cached config", "error", err)
	}

	user := opts.evaluationUser()
	var all []pennant.EvaluationDetails
	if opts.key != "" {
		all = []pennant.EvaluationDetails{client.Details(ctx, opts.key, nil, user)}
	} else {
		all, _ = client.AllDetails(ctx, user)
	}

	results := make([]result, 0, len(all))
	for _, d := range all {
		ok, err := filter.Match(d)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		r := result{
			Key:            d.Key,
			Value:          d.Value,
			VariationID:    d.VariationID,
			IsDefaultValue: d.IsDefaultValue,
			FetchTime:      d.FetchTime,
		}
		if d.Err != nil {
			r.ErrorCode = d.ErrorCode.String()
			r.Error = d.ErrorMessage
		}
		results = append(results, r)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func newClient(ctx context.Context, cfg Config, logger *slog.Logger) (*pennant.Client, func(), error) {
	dg, err := fetcher.ParseDataGovernance(cfg.DataGovernance)
	if err != nil {
		return nil, nil, err
	}

	opts := []pennant.Option{
		pennant.WithManualPoll(),
		pennant.WithLogger(logger),
		pennant.WithHTTPTimeout(cfg.HTTPTimeout),
		pennant.WithDataGovernance(dg),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, pennant.WithBaseURL(cfg.BaseURL))
	}

	closers := []func(){}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch {
	case cfg.RedisAddr != "":
		store, rdb, err := pennant.DialRedisCache(ctx, cfg.RedisAddr, pennant.CacheOptions{KeyPrefix: cfg.RedisPrefix})
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		opts = append(opts, pennant.WithCache(store))
	case cfg.CacheDir != "":
		store, err := pennant.NewDiskCache(cfg.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pennant.WithCache(store))
	}

	client, err := pennant.New(cfg.SDKKey, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, func() { _ = client.Close() })
	return client, cleanup, nil
}
