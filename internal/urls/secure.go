package urls

import (
	"context"
	"strings"

	storageapi "cdnlocal/pkg/storage"
)

// Rewriter swaps the insecure serving or processing base for its secure
// counterpart when the request is secure, then qualifies relative URLs.
type Rewriter struct {
	serve         string
	serveSecure   string
	process       string
	processSecure string

	detector  storageapi.SecureDetector
	qualifier storageapi.URLQualifier
}

// NewRewriter builds a Rewriter. Bases are normalized to a single trailing
// slash so that they match the rendered URLs. detector and qualifier may be
// nil.
func NewRewriter(serve, serveSecure, process, processSecure string, detector storageapi.SecureDetector, qualifier storageapi.URLQualifier) *Rewriter {
	return &Rewriter{
		serve:         addTrailingSlash(serve),
		serveSecure:   addTrailingSlash(serveSecure),
		process:       addTrailingSlash(process),
		processSecure: addTrailingSlash(processSecure),
		detector:      detector,
		qualifier:     qualifier,
	}
}

// MakeSecure rewrites u for the security of the request carried by ctx.
// processing selects between the processing and the serving bases.
func (r *Rewriter) MakeSecure(ctx context.Context, u string, processing bool) string {
	if r.detector != nil && r.detector.IsSecure(ctx) {
		from, to := r.serve, r.serveSecure
		if processing {
			from, to = r.process, r.processSecure
		}
		if from != to && strings.HasPrefix(u, from) {
			u = to + u[len(from):]
		}
	}

	if isAbsolute(u) || r.qualifier == nil {
		return u
	}
	return r.qualifier.QualifyURL(u)
}

// SiteQualifier prefixes site-relative paths with the site's base URL.
type SiteQualifier struct {
	BaseURL string
}

func (q SiteQualifier) QualifyURL(path string) string {
	return addTrailingSlash(q.BaseURL) + strings.TrimLeft(path, "/")
}

func isAbsolute(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func addTrailingSlash(s string) string {
	return strings.TrimRight(s, "/") + "/"
}
