// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command fetchx performs a single fetch, or synchronous
// XMLHttpRequest, and prints the status line, headers and body of the
// response. With -script it instead runs a JavaScript file with the
// fetch, FormData, AbortController and XMLHttpRequest globals.
//
//	fetchx [flags] URL
//	fetchx [flags] -script file.js
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/gogama/fetchx"
	"github.com/gogama/fetchx/body"
	"github.com/gogama/fetchx/header"
	"github.com/gogama/fetchx/origin"
	"github.com/gogama/fetchx/script"
	"github.com/gogama/fetchx/xhr"
	"github.com/rs/zerolog"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// multiFlag collects the values of a repeatable flag.
type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ", ")
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

type options struct {
	method       string
	headers      multiFlag
	data         string
	hasData      bool
	form         multiFlag
	sync         bool
	base         string
	timeout      time.Duration
	maxRedirects int
	configPath   string
	scriptPath   string
	verbose      bool
	credentials  string
	url          string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logger := newLogger(stderr, opts.verbose)
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	opts.override(cfg)
	c, err := cfg.client(&logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	switch {
	case opts.scriptPath != "":
		err = runScript(ctx, c, opts.scriptPath, stdout)
	case opts.sync:
		err = runSync(c, opts, cfg, stdout)
	default:
		err = runFetch(ctx, c, opts, cfg, stdout)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{maxRedirects: -1}
	fs := flag.NewFlagSet("fetchx", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.method, "X", "", "request method (default GET, or POST with -d or -F)")
	fs.Var(&opts.headers, "H", "request header `name: value` (repeatable)")
	fs.Func("d", "request body text", func(v string) error {
		opts.data = v
		opts.hasData = true
		return nil
	})
	fs.Var(&opts.form, "F", "multipart form field `name=value`, or name=@file (repeatable)")
	fs.BoolVar(&opts.sync, "sync", false, "use a synchronous XMLHttpRequest instead of fetch")
	fs.StringVar(&opts.base, "base", "", "document URL relative URLs resolve against")
	fs.DurationVar(&opts.timeout, "timeout", 0, "request timeout (0 means none)")
	fs.IntVar(&opts.maxRedirects, "max-redirects", -1, "maximum redirects to follow (-1 means the default)")
	fs.StringVar(&opts.configPath, "config", "", "TOML config `file`")
	fs.StringVar(&opts.scriptPath, "script", "", "run a JavaScript `file` instead of a single request")
	fs.BoolVar(&opts.verbose, "v", false, "log every hop and state change to stderr")
	fs.StringVar(&opts.credentials, "credentials", "", "send Authorization cross-origin: include, same-origin or omit (default include)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case opts.scriptPath != "" && fs.NArg() == 0:
	case opts.scriptPath == "" && fs.NArg() == 1:
		opts.url = fs.Arg(0)
	default:
		fs.Usage()
		return nil, errors.New("fetchx: expected exactly one URL, or -script")
	}
	if opts.credentials != "" && !validCredentials(opts.credentials) {
		return nil, fmt.Errorf("fetchx: invalid -credentials %q", opts.credentials)
	}
	if opts.hasData && len(opts.form) > 0 {
		return nil, errors.New("fetchx: -d and -F are mutually exclusive")
	}
	if opts.method == "" {
		opts.method = "GET"
		if opts.hasData || len(opts.form) > 0 {
			opts.method = "POST"
		}
	}
	return opts, nil
}

func (opts *options) override(cfg *config) {
	if opts.base != "" {
		cfg.Base = opts.base
	}
	if opts.timeout > 0 {
		cfg.Timeout.Duration = opts.timeout
	}
	if opts.maxRedirects >= 0 {
		n := opts.maxRedirects
		cfg.MaxRedirects = &n
	}
	if opts.credentials != "" {
		cfg.Credentials = opts.credentials
	}
}

func validCredentials(s string) bool {
	return s == "include" || s == "same-origin" || s == "omit"
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// requestHeader merges the configured headers with the -H flags, the
// latter appended after the former.
func requestHeader(configured map[string]string, flags []string) (*header.Header, error) {
	h := header.New()
	names := make([]string, 0, len(configured))
	for name := range configured {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := h.Append(name, configured[name]); err != nil {
			return nil, err
		}
	}
	for _, f := range flags {
		i := strings.IndexByte(f, ':')
		if i <= 0 {
			return nil, fmt.Errorf("fetchx: malformed header %q, want name: value", f)
		}
		if err := h.Append(f[:i], f[i+1:]); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// requestBody returns the body selected by -d or -F, or nil.
func requestBody(opts *options) (interface{}, error) {
	if opts.hasData {
		return opts.data, nil
	}
	if len(opts.form) == 0 {
		return nil, nil
	}
	fd := body.NewFormData()
	for _, f := range opts.form {
		i := strings.IndexByte(f, '=')
		if i <= 0 {
			return nil, fmt.Errorf("fetchx: malformed form field %q, want name=value", f)
		}
		name, value := f[:i], f[i+1:]
		if !strings.HasPrefix(value, "@") {
			fd.Append(name, value)
			continue
		}
		path := value[1:]
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, err
		}
		fd.AppendFile(name, body.Blob{Data: data}, filepath.Base(path))
	}
	return fd, nil
}

func runFetch(ctx context.Context, c *fetchx.Client, opts *options, cfg *config, stdout io.Writer) error {
	h, err := requestHeader(cfg.Headers, opts.headers)
	if err != nil {
		return err
	}
	b, err := requestBody(opts)
	if err != nil {
		return err
	}

	ctrl := fetchx.NewAbortController()
	stop := context.AfterFunc(ctx, func() {
		ctrl.Abort(nil)
	})
	defer stop()

	f := c.Fetch(opts.url, &fetchx.Init{
		Method:      opts.method,
		Header:      h,
		Body:        b,
		Credentials: cfg.credentials(),
		Signal:      ctrl.Signal(),
	})
	resp, err := f.Await(context.Background())
	if err != nil {
		return err
	}
	data, err := resp.Bytes()
	if err != nil {
		return err
	}
	return printResponse(stdout, resp.Status(), resp.StatusText(), resp.Header().String(), data)
}

func runSync(c *fetchx.Client, opts *options, cfg *config, stdout io.Writer) error {
	h, err := requestHeader(cfg.Headers, opts.headers)
	if err != nil {
		return err
	}
	b, err := requestBody(opts)
	if err != nil {
		return err
	}

	x := xhr.New(c)
	if err = x.Open(opts.method, opts.url, false); err != nil {
		return err
	}
	if err = x.SetWithCredentials(cfg.credentials() == origin.Include); err != nil {
		return err
	}
	for _, f := range h.Entries() {
		if err = x.SetRequestHeader(f.Name, f.Value); err != nil {
			return err
		}
	}
	if err = x.Send(b); err != nil {
		return err
	}
	return printResponse(stdout, x.Status(), x.StatusText(), x.GetAllResponseHeaders(), x.Response())
}

func runScript(ctx context.Context, c *fetchx.Client, path string, stdout io.Writer) error {
	src, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	rt := script.New(c)
	v, err := rt.Run(ctx, string(src))
	if err != nil {
		return err
	}
	if v != nil && !goja.IsUndefined(v) {
		_, err = fmt.Fprintln(stdout, v.String())
	}
	return err
}

func printResponse(w io.Writer, status int, statusText, headers string, data []byte) error {
	if _, err := fmt.Fprintf(w, "%d %s\n", status, statusText); err != nil {
		return err
	}
	if _, err := io.WriteString(w, strings.ReplaceAll(headers, "\r\n", "\n")); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
