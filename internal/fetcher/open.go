package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for sources Open cannot parse.
var ErrUnsupportedFormat = eris.New("fetcher: unsupported format")

// Format is a tabular file format.
type Format string

// Supported formats.
const (
	FormatCSV       Format = "csv"
	FormatXLSX      Format = "xlsx"
	FormatShapefile Format = "shp"
)

// Opener resolves dataset locations into tables.
type Opener struct {
	HTTP Fetcher
	FTP  Fetcher
	XLSX XLSXOptions
}

// NewOpener creates an Opener with default HTTP and FTP fetchers.
func NewOpener(httpOpts HTTPOptions, ftpOpts FTPOptions) *Opener {
	return &Opener{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

// DetectFormat infers the format from the path's extension. Zipped
// shapefiles count as shapefiles. Paths without an extension are CSV.
func DetectFormat(p string) (Format, error) {
	switch ext := strings.ToLower(path.Ext(p)); ext {
	case ".csv", ".txt", "":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".shp", ".zip":
		return FormatShapefile, nil
	default:
		return "", eris.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}
}

// Open loads src into a table. src is an http(s):// or ftp:// URL or a local
// path; the format follows the extension.
func (o *Opener) Open(ctx context.Context, src string) (Table, error) {
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Bare paths and Windows drive letters.
		return o.openLocal(ctx, src)
	}

	var f Fetcher
	switch u.Scheme {
	case "http", "https":
		f = o.HTTP
	case "ftp":
		f = o.FTP
	case "file":
		return o.openLocal(ctx, u.Path)
	default:
		return Table{}, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
	if f == nil {
		return Table{}, eris.Errorf("fetcher: no fetcher configured for %s", u.Scheme)
	}

	format, err := DetectFormat(u.Path)
	if err != nil {
		return Table{}, err
	}

	zap.L().Info("fetcher: downloading dataset",
		zap.String("host", u.Host),
		zap.String("format", string(format)),
	)

	body, err := f.Download(ctx, src)
	if err != nil {
		return Table{}, err
	}
	defer body.Close() //nolint:errcheck

	if format == FormatCSV {
		return ReadCSV(ctx, body)
	}

	// XLSX and shapefile readers need a file on disk.
	tmp, err := spool(body, path.Ext(u.Path))
	if err != nil {
		return Table{}, err
	}
	defer os.Remove(tmp) //nolint:errcheck
	return o.readFile(tmp, format)
}

func (o *Opener) openLocal(ctx context.Context, p string) (Table, error) {
	format, err := DetectFormat(filepath.ToSlash(p))
	if err != nil {
		return Table{}, err
	}
	if format != FormatCSV {
		return o.readFile(p, format)
	}

	file, err := os.Open(p)
	if err != nil {
		return Table{}, eris.Wrap(err, "fetcher: open file")
	}
	defer file.Close() //nolint:errcheck
	return ReadCSV(ctx, file)
}

func (o *Opener) readFile(p string, format Format) (Table, error) {
	switch format {
	case FormatXLSX:
		return ReadXLSX(p, o.XLSX)
	case FormatShapefile:
		return ReadShapefilePoints(p)
	default:
		return Table{}, eris.Wrapf(ErrUnsupportedFormat, "format %q", format)
	}
}

// spool copies r to a temp file with the given extension.
func spool(r io.Reader, ext string) (string, error) {
	tmp, err := os.CreateTemp("", "landcover-*"+ext)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create temp file")
	}
	defer tmp.Close() //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		_ = os.Remove(tmp.Name())
		return "", eris.Wrap(err, "fetcher: write temp file")
	}
	return tmp.Name(), nil
}
