package canvasdata

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
	"github.com/relloyd/cdsync/logger"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

// Config holds the connection details for the Canvas Data API.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration // per HTTP request; zero means no client side timeout.
}

// Client fetches schemas and table data from the Canvas Data API.
// Schemas and the latest dump are cached until Reset so concurrent table
// fetches within one run see the same dump.
type Client struct {
	log        logger.Logger
	baseURL    *url.URL
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	schemas     map[string]tabledefinition.SchemaDescriptor
	latestDump  *Dump
	dumpFetchMu sync.Mutex
}

// NewClient returns a Client for cfg. BaseURL defaults to the public API host.
func NewClient(log logger.Logger, cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("canvas data api key and secret are required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = constants.CanvasDataBaseURLDefault
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid canvas data base url %q", base)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid canvas data base url %q", base)
	}
	return &Client{
		log:        log,
		baseURL:    u,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		schemas:    make(map[string]tabledefinition.SchemaDescriptor),
	}, nil
}

// Reset drops the cached schemas and latest dump. Call it between runs.
func (c *Client) Reset() {
	c.dumpFetchMu.Lock()
	c.latestDump = nil
	c.dumpFetchMu.Unlock()
	c.mu.Lock()
	c.schemas = make(map[string]tabledefinition.SchemaDescriptor)
	c.mu.Unlock()
}

// getJSON performs a signed GET of path and decodes the JSON response into v.
func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	u := *c.baseURL
	u.Path = u.Path + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrapf(err, "error building request for %v", path)
	}
	signRequest(req, c.apiKey, c.apiSecret, c.now())
	c.log.Debug("canvas data api GET ", u.Path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error calling canvas data api %v", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrapf(err, "error decoding canvas data api response for %v", path)
	}
	return nil
}

// GetSchema fetches the schema for version, keyed on table names.
func (c *Client) GetSchema(ctx context.Context, version string) (tabledefinition.SchemaDescriptor, error) {
	if version == "" {
		version = constants.SchemaVersionLatest
	}
	c.mu.Lock()
	s, ok := c.schemas[version]
	c.mu.Unlock()
	if ok {
		return s, nil
	}
	var raw tabledefinition.SchemaDescriptor
	if err := c.getJSON(ctx, "/api/schema/"+url.PathEscape(version), &raw); err != nil {
		return tabledefinition.SchemaDescriptor{}, err
	}
	if len(raw.Tables) == 0 {
		return tabledefinition.SchemaDescriptor{}, errors.Errorf("schema version %q contains no tables", version)
	}
	s = raw.KeyOnTableNames()
	c.mu.Lock()
	c.schemas[version] = s
	if s.Version != "" {
		c.schemas[s.Version] = s
	}
	c.mu.Unlock()
	c.log.Info("fetched schema version ", s.Version, " with ", len(s.Tables), " tables")
	return s, nil
}

// GetLatestDump fetches the most recent dump, once per Reset.
func (c *Client) GetLatestDump(ctx context.Context) (Dump, error) {
	c.dumpFetchMu.Lock()
	defer c.dumpFetchMu.Unlock()
	if c.latestDump != nil {
		return *c.latestDump, nil
	}
	var d Dump
	if err := c.getJSON(ctx, "/api/account/self/file/latest", &d); err != nil {
		return Dump{}, err
	}
	c.latestDump = &d
	c.log.Info("latest dump ", d.DumpID, " sequence ", d.Sequence, " schema version ", d.SchemaVersion)
	return d, nil
}

// GetDataForTable downloads all files of tableName from the latest dump into dir and
// concatenates them, after a tab separated header line built from the dump's schema,
// into dir/{tableName}.txt. The path of that file is returned.
func (c *Client) GetDataForTable(ctx context.Context, tableName string, dir string) (string, error) {
	dump, err := c.GetLatestDump(ctx)
	if err != nil {
		return "", err
	}
	artifact, ok := dump.ArtifactsByTable[tableName]
	if !ok {
		return "", errors.Errorf("table %q is not part of dump %v", tableName, dump.DumpID)
	}
	schema, err := c.GetSchema(ctx, dump.SchemaVersion)
	if err != nil {
		return "", err
	}
	cols, ok := schema.GetTable(tableName)
	if !ok {
		return "", errors.Errorf("table %q is not part of schema version %v", tableName, schema.Version)
	}
	downloadDir := filepath.Join(dir, constants.DownloadDirName)
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "error creating download directory %v", downloadDir)
	}
	files := artifact.SortedFiles()
	downloaded := make([]string, 0, len(files))
	for _, f := range files {
		p, err := c.download(ctx, f, downloadDir)
		if err != nil {
			return "", err
		}
		downloaded = append(downloaded, p)
	}
	outFile := filepath.Join(dir, tableName+constants.RawDumpExtension)
	if err := concatenate(outFile, cols.ColumnNames(), downloaded); err != nil {
		return "", err
	}
	c.log.Debug("table ", tableName, " downloaded ", len(downloaded), " files to ", outFile)
	return outFile, nil
}

// download saves one dump file into dir. File URLs are pre-signed so no API signature is added.
func (c *Client) download(ctx context.Context, f DumpFile, dir string) (string, error) {
	name := filepath.Base(f.FileName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", errors.Errorf("invalid dump file name %q", f.FileName)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return "", errors.Wrapf(err, "error building download request for %v", name)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "error downloading %v", name)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &APIError{Method: http.MethodGet, Path: name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	p := filepath.Join(dir, name)
	out, err := os.Create(p)
	if err != nil {
		return "", errors.Wrapf(err, "error creating %v", p)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return "", errors.Wrapf(err, "error saving %v", p)
	}
	if err := out.Close(); err != nil {
		return "", errors.Wrapf(err, "error closing %v", p)
	}
	return p, nil
}

// concatenate writes the header line followed by the gunzipped contents of each file.
func concatenate(outFile string, header []string, gzFiles []string) (err error) {
	out, err := os.Create(outFile)
	if err != nil {
		return errors.Wrapf(err, "error creating %v", outFile)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "error closing %v", outFile)
		}
	}()
	if _, err = io.WriteString(out, strings.Join(header, "\t")+"\n"); err != nil {
		return errors.Wrapf(err, "error writing header to %v", outFile)
	}
	for _, p := range gzFiles {
		if err = appendGzip(out, p); err != nil {
			return err
		}
	}
	return nil
}

func appendGzip(w io.Writer, gzFile string) error {
	f, err := os.Open(gzFile)
	if err != nil {
		return errors.Wrapf(err, "error opening %v", gzFile)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "error reading gzip header of %v", gzFile)
	}
	defer zr.Close()
	lw := &lastByteWriter{w: w}
	if _, err := io.Copy(lw, zr); err != nil {
		return errors.Wrapf(err, "error decompressing %v", gzFile)
	}
	// A part must not run its last row into the next part's first row.
	if lw.written && lw.last != '\n' {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return errors.Wrapf(err, "error terminating last row of %v", gzFile)
		}
	}
	return nil
}

type lastByteWriter struct {
	w       io.Writer
	last    byte
	written bool
}

func (l *lastByteWriter) Write(p []byte) (int, error) {
	n, err := l.w.Write(p)
	if n > 0 {
		l.last = p[n-1]
		l.written = true
	}
	return n, err
}
