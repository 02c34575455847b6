package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mitchellh/go-homedir"

	"github.com/localreader/narrator/internal/document"
)

// source provides a readable document source.
type source struct {
	reader io.ReadCloser
	URL    string
}

// sourceFromArg parses an argument and creates a readable source for it.
func sourceFromArg(ctx context.Context, arg string) (*source, error) {
	// from stdin
	if arg == "-" {
		return &source{reader: os.Stdin}, nil
	}

	// HTTP(S) URLs:
	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") {
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("unable to create request: %w", err)
		}
		// consumer of the source is responsible for closing the ReadCloser.
		resp, err := http.DefaultClient.Do(req) //nolint:bodyclose
		if err != nil {
			return nil, fmt.Errorf("unable to get url: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
		}
		return &source{resp.Body, u.String()}, nil
	}

	path := expandPath(arg)
	st, err := os.Stat(path)
	if err == nil && st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", arg)
	}

	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	u, err := filepath.Abs(path)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{r, u}, nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// readDocument loads the document named by args, the clipboard or a piped
// stdin, in that order of preference.
func readDocument(ctx context.Context, args []string) (*document.Document, error) {
	if useClipboard {
		text, err := clipboard.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("unable to read clipboard: %w", err)
		}
		return document.Parse([]byte(text), "clipboard.txt"), nil
	}

	var src *source
	switch {
	case len(args) > 0:
		s, err := sourceFromArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		src = s
	default:
		yes, err := stdinIsPipe()
		if err != nil {
			return nil, err
		}
		if !yes {
			return nil, errors.New("missing source: pass a file, a URL, - for stdin or --clipboard")
		}
		src = &source{reader: os.Stdin}
	}
	defer src.reader.Close() //nolint:errcheck

	doc, err := document.Load(src.reader, src.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to load document: %w", err)
	}
	return doc, nil
}

// readText returns the whole text of the source document.
func readText(ctx context.Context, args []string) (string, error) {
	doc, err := readDocument(ctx, args)
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

// expandPath expands a leading ~ and environment variables.
func expandPath(path string) string {
	if path == "" {
		return ""
	}
	expanded, err := homedir.Expand(os.ExpandEnv(path))
	if err != nil {
		return path
	}
	return expanded
}
