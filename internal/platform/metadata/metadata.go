package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"

	"github.com/yungbote/dae-backend/internal/platform/httpx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

var (
	ErrFetch   = errors.New("metadata fetch failed")
	ErrInvalid = errors.New("metadata document invalid")
)

// CourseMetadata is the JSON document pointed to by a course contract's baseURI.
type CourseMetadata struct {
	Name                string          `json:"name" validate:"required"`
	Description         string          `json:"description" validate:"required"`
	AccessURL           string          `json:"access_url" validate:"required,url"`
	Image               string          `json:"image" validate:"required,url"`
	Website             string          `json:"website" validate:"required,url"`
	SnapshotSpace       string          `json:"snapshot_space,omitempty"`
	MagisterBaseKarma   int64           `json:"magister_base_karma,omitempty" validate:"gte=0"`
	DiscipulusBaseKarma int64           `json:"discipulus_base_karma,omitempty" validate:"gte=0"`
	Attributes          json.RawMessage `json:"attributes,omitempty"`
}

type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*CourseMetadata, error)
}

type Config struct {
	Gateway  string
	Timeout  time.Duration
	Retries  int
	RetryMin time.Duration
	RetryMax time.Duration
}

type fetcher struct {
	log      *logger.Logger
	client   *resty.Client
	gateway  string
	validate *validator.Validate
}

func NewFetcher(log *logger.Logger, cfg Config) Fetcher {
	if cfg.Gateway == "" {
		cfg.Gateway = "https://ipfs.io"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryMin <= 0 {
		cfg.RetryMin = 250 * time.Millisecond
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryMin).
		SetRetryMaxWaitTime(cfg.RetryMax).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return httpx.IsRetryableError(err)
			}
			return r != nil && httpx.IsRetryableHTTPStatus(r.StatusCode())
		}).
		SetRetryAfter(func(_ *resty.Client, r *resty.Response) (time.Duration, error) {
			// Gateways send Retry-After on 429; zero falls back to resty's backoff.
			if r == nil {
				return 0, nil
			}
			return httpx.RetryAfterDuration(r.RawResponse, 0, cfg.RetryMax), nil
		})
	return &fetcher{
		log:      log.With("service", "MetadataFetcher"),
		client:   client,
		gateway:  strings.TrimRight(cfg.Gateway, "/"),
		validate: validator.New(),
	}
}

func (f *fetcher) Fetch(ctx context.Context, uri string) (*CourseMetadata, error) {
	target, err := Resolve(f.gateway, uri)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.R().SetContext(ctx).Get(target)
	if err != nil {
		f.log.Warn("Metadata request failed", "uri", uri, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if resp.StatusCode() != http.StatusOK {
		f.log.Warn("Metadata request returned non-200", "uri", uri, "status", resp.StatusCode())
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode())
	}
	var doc CourseMetadata
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	doc.Name = strings.TrimSpace(doc.Name)
	doc.Description = strings.TrimSpace(doc.Description)
	if err := f.validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}
	return &doc, nil
}

// Resolve maps ipfs:// URIs onto the gateway; http(s) URIs pass through.
func Resolve(gateway, uri string) (string, error) {
	u := strings.TrimSpace(uri)
	switch {
	case u == "":
		return "", fmt.Errorf("%w: empty uri", ErrFetch)
	case strings.HasPrefix(strings.ToLower(u), "ipfs://"):
		rest := strings.TrimPrefix(u[len("ipfs://"):], "ipfs/")
		return strings.TrimRight(gateway, "/") + "/ipfs/" + rest, nil
	case strings.HasPrefix(strings.ToLower(u), "http://"), strings.HasPrefix(strings.ToLower(u), "https://"):
		return u, nil
	default:
		return "", fmt.Errorf("%w: unsupported uri scheme %q", ErrFetch, u)
	}
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	var missing, malformed []string
	for _, fe := range verrs {
		name := jsonName(fe.StructField())
		if fe.Tag() == "required" {
			missing = append(missing, name)
		} else {
			malformed = append(malformed, name)
		}
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(missing, ", "))
	}
	if len(malformed) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(malformed, ", "))
	}
	return strings.Join(parts, "; ")
}

var jsonNames = map[string]string{
	"Name":                "name",
	"Description":         "description",
	"AccessURL":           "access_url",
	"Image":               "image",
	"Website":             "website",
	"MagisterBaseKarma":   "magister_base_karma",
	"DiscipulusBaseKarma": "discipulus_base_karma",
}

func jsonName(field string) string {
	if n, ok := jsonNames[field]; ok {
		return n
	}
	return field
}
