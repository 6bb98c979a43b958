package catalog

import (
	"net/url"
	"path"
	"strings"
)

// DefaultURLPrefix is where stored thumbnails are served from.
const DefaultURLPrefix = "/app1/uploads"

// Projector turns stored refs into addresses clients can fetch. It never
// touches stored state.
type Projector struct {
	prefix string
}

func NewProjector(prefix string) Projector {
	if prefix == "" {
		prefix = DefaultURLPrefix
	}
	return Projector{prefix: "/" + strings.Trim(prefix, "/")}
}

// Prefix is the URL path under which refs are served.
func (p Projector) Prefix() string {
	return p.prefix
}

// Project returns a copy of rec whose Thumbnail is an absolute URL scoped to
// origin. Records without a thumbnail keep "".
func (p Projector) Project(origin Origin, rec Record) Record {
	if rec.Thumbnail == "" {
		return rec
	}
	scheme := origin.Scheme
	if scheme == "" {
		scheme = "http"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   origin.Host,
		Path:   path.Join(p.prefix, rec.Thumbnail),
	}
	rec.Thumbnail = u.String()
	return rec
}

// Ref recovers the stored ref from a projected URL path, or "" if the path is
// outside the prefix.
func (p Projector) Ref(urlPath string) string {
	rest, ok := strings.CutPrefix(urlPath, strings.TrimSuffix(p.prefix, "/")+"/")
	if !ok {
		return ""
	}
	return rest
}
