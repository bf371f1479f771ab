package location

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"blood-donation/internal/domain"
)

const (
	DivisionsFile = "divisions.json"
	DistrictsFile = "districts.json"
	UpazilasFile  = "upazilas.json"
)

// Source loads the three reference lists.
type Source interface {
	Load(ctx context.Context) (Dataset, error)
}

// rawNode accepts the shapes seen in published datasets: numeric or string
// ids, name and/or en_name, and a parent under parent_id, division_id or
// district_id.
type rawNode struct {
	ID         json.RawMessage `json:"id"`
	Name       string          `json:"name"`
	EnName     string          `json:"en_name"`
	ParentID   json.RawMessage `json:"parent_id"`
	DivisionID json.RawMessage `json:"division_id"`
	DistrictID json.RawMessage `json:"district_id"`
}

func (r rawNode) node() domain.LocationNode {
	parent := idString(r.ParentID)
	if parent == "" {
		parent = idString(r.DivisionID)
	}
	if parent == "" {
		parent = idString(r.DistrictID)
	}
	return domain.LocationNode{
		ID:       idString(r.ID),
		Name:     r.Name,
		EnName:   r.EnName,
		ParentID: parent,
	}
}

func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// DecodeNodes parses one reference list. It accepts a bare array or the
// phpMyAdmin-style export wrapping the rows under a "data" key.
func DecodeNodes(r io.Reader) ([]domain.LocationNode, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)

	var rows []rawNode
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, err
		}
	} else {
		var wrapped struct {
			Data []rawNode `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, err
		}
		rows = wrapped.Data
	}

	nodes := make([]domain.LocationNode, 0, len(rows))
	for _, row := range rows {
		n := row.node()
		if n.ID == "" || (n.Name == "" && n.EnName == "") {
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) Load(ctx context.Context) (Dataset, error) {
	return loadAll(func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(s.Dir, name))
	})
}

type MinIOSource struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinIOSource(client *minio.Client, bucket, prefix string) *MinIOSource {
	return &MinIOSource{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *MinIOSource) Load(ctx context.Context) (Dataset, error) {
	return loadAll(func(name string) (io.ReadCloser, error) {
		key := name
		if s.prefix != "" {
			key = s.prefix + "/" + name
		}
		return s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	})
}

func loadAll(open func(name string) (io.ReadCloser, error)) (Dataset, error) {
	var ds Dataset
	targets := []struct {
		name string
		dst  *[]domain.LocationNode
	}{
		{DivisionsFile, &ds.Divisions},
		{DistrictsFile, &ds.Districts},
		{UpazilasFile, &ds.Upazilas},
	}

	for _, t := range targets {
		rc, err := open(t.name)
		if err != nil {
			return Dataset{}, fmt.Errorf("open %s: %w", t.name, err)
		}
		nodes, err := DecodeNodes(rc)
		rc.Close()
		if err != nil {
			return Dataset{}, fmt.Errorf("decode %s: %w", t.name, err)
		}
		*t.dst = nodes
	}
	return ds, nil
}
