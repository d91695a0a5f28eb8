package httputil

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/url"
	"strings"
	"time"
)

var errNotFound = fs.ErrNotExist

// RemoteFS is a read-only file system backed by a static HTTP host. File
// names are resolved relative to the base URL.
type RemoteFS struct {
	ctx    context.Context
	client *Client
	base   *url.URL
}

// NewRemoteFS returns a RemoteFS rooted at baseURL. ctx bounds every
// request made through the file system.
func NewRemoteFS(ctx context.Context, client *Client, baseURL string) (*RemoteFS, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("remote data source must be an http or https URL")
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = NewClient(ClientOptions{})
	}
	return &RemoteFS{ctx: ctx, client: client, base: u}, nil
}

// URL returns the absolute URL of name.
func (f *RemoteFS) URL(name string) string {
	return f.base.ResolveReference(&url.URL{Path: name}).String()
}

// ReadFile implements fs.ReadFileFS.
func (f *RemoteFS) ReadFile(name string) ([]byte, error) {
	return f.read("read", name)
}

// Open implements fs.FS. The whole body is fetched on open.
func (f *RemoteFS) Open(name string) (fs.File, error) {
	data, err := f.read("open", name)
	if err != nil {
		return nil, err
	}
	return &memFile{Reader: bytes.NewReader(data), info: fileInfo{name: name, size: int64(len(data))}}, nil
}

func (f *RemoteFS) read(op, name string) ([]byte, error) {
	if !fs.ValidPath(name) || name == "." {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	data, err := f.client.Fetch(f.ctx, f.URL(name))
	if err != nil {
		return nil, &fs.PathError{Op: op, Path: name, Err: err}
	}
	return data, nil
}

type memFile struct {
	*bytes.Reader
	info fileInfo
}

func (m *memFile) Stat() (fs.FileInfo, error) { return m.info, nil }
func (m *memFile) Close() error               { return nil }

type fileInfo struct {
	name string
	size int64
}

func (i fileInfo) Name() string       { return i.name[strings.LastIndex(i.name, "/")+1:] }
func (i fileInfo) Size() int64        { return i.size }
func (i fileInfo) Mode() fs.FileMode  { return 0o444 }
func (i fileInfo) ModTime() time.Time { return time.Time{} }
func (i fileInfo) IsDir() bool        { return false }
func (i fileInfo) Sys() any           { return nil }

var (
	_ fs.ReadFileFS = (*RemoteFS)(nil)
	_ fs.File       = (*memFile)(nil)
)
