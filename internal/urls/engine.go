package urls

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	storageapi "cdnlocal/pkg/storage"
)

// Scheme names.
const (
	SchemeServe       = "serve"
	SchemeServeRaw    = "serve-raw"
	SchemeServeZipped = "serve-zipped"
	SchemeCrop        = "crop"
	SchemeScale       = "scale"
	SchemePlaceholder = "placeholder"
	SchemeBlankAvatar = "blank-avatar"
	SchemeExpiring    = "expiring"
)

// DefaultRawPrefix is where raw object URLs point, relative to the site.
const DefaultRawPrefix = "assets/uploads/"

const (
	defaultDimension = 100
	defaultBorder    = 0
)

// Config holds what the Engine needs from settings and collaborators.
type Config struct {
	ServeURI         string
	ServeSecureURI   string
	ProcessURI       string
	ProcessSecureURI string

	// RawPrefix defaults to DefaultRawPrefix.
	RawPrefix string

	Secret    string
	Secure    storageapi.SecureDetector
	Qualifier storageapi.URLQualifier
	Encoder   storageapi.TokenEncoder
	Clock     func() time.Time
}

// NamedScheme describes one scheme for listings.
type NamedScheme struct {
	Name       string `json:"name"`
	Scheme     string `json:"scheme"`
	Processing bool   `json:"processing"`
}

// Engine renders every URL scheme of the driver. All templates are built
// once in NewEngine; the Engine is safe for concurrent use.
type Engine struct {
	serve         Template
	serveDownload Template
	raw           Template
	zipped        Template
	zippedBare    Template
	crop          Template
	scale         Template
	placeholder   Template
	avatar        Template
	avatarBare    Template
	expiring      Template

	rewriter *Rewriter
	tokens   TokenBuilder
}

var _ storageapi.URLGenerator = (*Engine)(nil)

func NewEngine(cfg Config) *Engine {
	serve := addTrailingSlash(cfg.ServeURI)
	process := addTrailingSlash(cfg.ProcessURI)

	rawPrefix := cfg.RawPrefix
	if rawPrefix == "" {
		rawPrefix = DefaultRawPrefix
	}
	rawPrefix = addTrailingSlash(rawPrefix)

	encoder := cfg.Encoder
	if encoder == nil {
		encoder = AESTokenEncoder{}
	}

	return &Engine{
		serve:         Parse(serve + "serve/{{bucket}}/{{filename}}{{extension}}"),
		serveDownload: Parse(serve + "serve/{{bucket}}/{{filename}}{{extension}}?dl=1"),
		raw:           Parse(rawPrefix + "{{bucket}}/{{object}}"),
		zipped:        Parse(process + "zip/{{ids}}/{{hash}}/{{filename}}"),
		zippedBare:    Parse(process + "zip/{{ids}}/{{hash}}"),
		crop:          Parse(process + "crop/{{width}}/{{height}}/{{bucket}}/{{filename}}{{extension}}"),
		scale:         Parse(process + "scale/{{width}}/{{height}}/{{bucket}}/{{filename}}{{extension}}"),
		placeholder:   Parse(process + "placeholder/{{width}}/{{height}}/{{border}}"),
		avatar:        Parse(process + "blank_avatar/{{width}}/{{height}}/{{sex}}"),
		avatarBare:    Parse(process + "blank_avatar/{{width}}/{{height}}"),
		expiring:      Parse(process + "serve?token={{token}}&dl={{download}}"),

		rewriter: NewRewriter(cfg.ServeURI, cfg.ServeSecureURI, cfg.ProcessURI, cfg.ProcessSecureURI, cfg.Secure, cfg.Qualifier),
		tokens: TokenBuilder{
			Secret:  cfg.Secret,
			Encoder: encoder,
			Clock:   cfg.Clock,
		},
	}
}

// Schemes lists every scheme string as it would be returned for ctx.
func (e *Engine) Schemes(ctx context.Context) []NamedScheme {
	return []NamedScheme{
		{Name: SchemeServe, Scheme: e.URLServeScheme(ctx, false)},
		{Name: SchemeServeRaw, Scheme: e.URLServeRawScheme(ctx)},
		{Name: SchemeServeZipped, Scheme: e.URLServeZippedScheme(ctx), Processing: true},
		{Name: SchemeCrop, Scheme: e.URLCropScheme(ctx), Processing: true},
		{Name: SchemeScale, Scheme: e.URLScaleScheme(ctx), Processing: true},
		{Name: SchemePlaceholder, Scheme: e.URLPlaceholderScheme(ctx), Processing: true},
		{Name: SchemeBlankAvatar, Scheme: e.URLBlankAvatarScheme(ctx), Processing: true},
		{Name: SchemeExpiring, Scheme: e.URLExpiringScheme(ctx), Processing: true},
	}
}

func (e *Engine) URLServe(ctx context.Context, object string, bucket string, forceDownload bool) string {
	t := e.serve
	if forceDownload {
		t = e.serveDownload
	}
	filename, extension := splitObject(object)
	return e.rewriter.MakeSecure(ctx, t.MustRender(Values{
		"bucket":    bucket,
		"filename":  filename,
		"extension": extension,
	}), false)
}

func (e *Engine) URLServeScheme(ctx context.Context, forceDownload bool) string {
	if forceDownload {
		return e.rewriter.MakeSecure(ctx, e.serveDownload.String(), false)
	}
	return e.rewriter.MakeSecure(ctx, e.serve.String(), false)
}

// URLServeRaw points straight at the file under the raw prefix, bypassing
// the serving endpoint.
func (e *Engine) URLServeRaw(ctx context.Context, object string, bucket string) string {
	return e.rewriter.MakeSecure(ctx, e.raw.MustRender(Values{
		"bucket": bucket,
		"object": object,
	}), false)
}

func (e *Engine) URLServeRawScheme(ctx context.Context) string {
	return e.rewriter.MakeSecure(ctx, e.raw.String(), false)
}

// URLServeZipped renders the zip-bundle URL. The filename segment is left
// out entirely when filename is empty.
func (e *Engine) URLServeZipped(ctx context.Context, objectIDs []string, hash string, filename string) string {
	values := Values{
		"ids":  strings.Join(objectIDs, ","),
		"hash": hash,
	}

	t := e.zippedBare
	if filename != "" {
		t = e.zipped
		values["filename"] = url.QueryEscape(filename)
	}
	return e.rewriter.MakeSecure(ctx, t.MustRender(values), true)
}

func (e *Engine) URLServeZippedScheme(ctx context.Context) string {
	return e.rewriter.MakeSecure(ctx, e.zipped.String(), true)
}

func (e *Engine) URLCrop(ctx context.Context, object string, bucket string, width int, height int) string {
	return e.rewriter.MakeSecure(ctx, e.crop.MustRender(transformValues(object, bucket, width, height)), true)
}

func (e *Engine) URLCropScheme(ctx context.Context) string {
	return e.rewriter.MakeSecure(ctx, e.crop.String(), true)
}

func (e *Engine) URLScale(ctx context.Context, object string, bucket string, width int, height int) string {
	return e.rewriter.MakeSecure(ctx, e.scale.MustRender(transformValues(object, bucket, width, height)), true)
}

func (e *Engine) URLScaleScheme(ctx context.Context) string {
	return e.rewriter.MakeSecure(ctx, e.scale.String(), true)
}

// URLPlaceholder renders a placeholder URL. Non-positive dimensions fall
// back to 100 and a negative border to 0.
func (e *Engine) URLPlaceholder(ctx context.Context, width int, height int, border int) string {
	if border < 0 {
		border = defaultBorder
	}
	return e.rewriter.MakeSecure(ctx, e.placeholder.MustRender(Values{
		"width":  dimension(width),
		"height": dimension(height),
		"border": strconv.Itoa(border),
	}), true)
}

func (e *Engine) URLPlaceholderScheme(ctx context.Context) string {
	return e.rewriter.MakeSecure(ctx, e.placeholder.String(), true)
}

// URLBlankAvatar renders a blank avatar URL; an empty sex drops the last
// path segment.
func (e *Engine) URLBlankAvatar(ctx context.Context, width int, height int, sex string) string {
	values := Values{
		"width":  dimension(width),
		"height": dimension(height),
	}

	t := e.avatarBare
	if sex != "" {
		t = e.avatar
		values["sex"] = sex
	}
	return e.rewriter.MakeSecure(ctx, t.MustRender(values), true)
}

func (e *Engine) URLBlankAvatarScheme(ctx context.Context) string {
	return e.rewriter.MakeSecure(ctx, e.avatar.String(), true)
}

func (e *Engine) URLExpiring(ctx context.Context, object string, bucket string, expires time.Duration, forceDownload bool) (string, error) {
	token, err := e.tokens.Build(bucket, object, expires)
	if err != nil {
		return "", err
	}

	download := "0"
	if forceDownload {
		download = "1"
	}
	return e.rewriter.MakeSecure(ctx, e.expiring.MustRender(Values{
		"token":    token,
		"download": download,
	}), true), nil
}

func (e *Engine) URLExpiringScheme(ctx context.Context) string {
	return e.rewriter.MakeSecure(ctx, e.expiring.String(), true)
}

func transformValues(object string, bucket string, width int, height int) Values {
	filename, extension := splitObject(object)
	return Values{
		"width":     strconv.Itoa(width),
		"height":    strconv.Itoa(height),
		"bucket":    bucket,
		"filename":  filename,
		"extension": extension,
	}
}

// splitObject splits an object name at its last dot into a lower-cased name
// and a lower-cased extension that keeps the dot.
func splitObject(object string) (string, string) {
	i := strings.LastIndex(object, ".")
	if i < 0 {
		return strings.ToLower(object), ""
	}
	return strings.ToLower(object[:i]), strings.ToLower(object[i:])
}

func dimension(v int) string {
	if v <= 0 {
		v = defaultDimension
	}
	return strconv.Itoa(v)
}
