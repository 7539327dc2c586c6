package resolver

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"go.uber.org/zap"
)

// Factory builds a resolver for one streaming protocol
type Factory func(protocol string) (*Resolver, error)

// Retrying runs an operation with each accepted protocol in turn until one
// of them does not fail outright. A partially successful playlist is not
// retried.
type Retrying struct {
	protocols []string
	factory   Factory
	logger    *zap.Logger
}

// protocolBase returns the protocol name without a backend variant,
// "hds:youtubedl" → "hds"
func protocolBase(protocol string) string {
	base, _, _ := strings.Cut(protocol, ":")
	return base
}

// SelectProtocols narrows the requested protocols to the acceptable ones,
// preserving the requested order. Without a request the default protocols
// of the acceptable families are used.
func SelectProtocols(acceptable, requested []string) (accepted, rejected []string) {
	if len(requested) == 0 {
		requested = lo.Filter(domain.DefaultProtocols, func(p string, _ int) bool {
			return lo.SomeBy(acceptable, func(a string) bool {
				return strings.HasPrefix(p, a)
			})
		})
	}

	supported := func(p string, _ int) bool {
		return lo.Contains(acceptable, protocolBase(p))
	}
	return lo.Filter(requested, supported), lo.Reject(requested, supported)
}

// NewRetrying creates a retrying wrapper for a source kind
func NewRetrying(kind Kind, requested []string, factory Factory, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}

	accepted, rejected := SelectProtocols(kind.Protocols(), requested)
	if len(rejected) > 0 {
		logger.Warn("The following protocols are not supported on this source: " + strings.Join(rejected, ", "))
	}

	return &Retrying{protocols: accepted, factory: factory, logger: logger}
}

// Protocols returns the protocols that will be tried, in order
func (r *Retrying) Protocols() []string {
	return append([]string(nil), r.protocols...)
}

// Download saves the clips of url
func (r *Retrying) Download(ctx context.Context, url string, filters domain.StreamFilters) domain.Result {
	return r.retry(func(res *Resolver) domain.Result {
		return res.Download(ctx, url, filters)
	})
}

// Pipe writes the stream of url to stdout
func (r *Retrying) Pipe(ctx context.Context, url string, filters domain.StreamFilters) domain.Result {
	return r.retry(func(res *Resolver) domain.Result {
		return res.Pipe(ctx, url, filters)
	})
}

// PrintURLs prints stream or episode page URLs
func (r *Retrying) PrintURLs(ctx context.Context, url string, episodePage bool, filters domain.StreamFilters) domain.Result {
	return r.retry(func(res *Resolver) domain.Result {
		return res.PrintURLs(ctx, url, episodePage, filters)
	})
}

// PrintTitles prints clip titles
func (r *Retrying) PrintTitles(ctx context.Context, url string, filters domain.StreamFilters) domain.Result {
	return r.retry(func(res *Resolver) domain.Result {
		return res.PrintTitles(ctx, url, filters)
	})
}

// Each hands the resolved clips to fn
func (r *Retrying) Each(ctx context.Context, url string, filters domain.StreamFilters, fn func(*Clip)) domain.Result {
	return r.retry(func(res *Resolver) domain.Result {
		return res.Each(ctx, url, filters, fn)
	})
}

// retry consumes a private copy of the protocol queue. The next protocol
// is tried only when no clip of the playlist succeeded.
func (r *Retrying) retry(op func(*Resolver) domain.Result) domain.Result {
	queue := r.Protocols()
	for len(queue) > 0 {
		protocol := queue[0]
		queue = queue[1:]

		r.logger.Debug("Streaming protocol " + protocol)
		res, err := r.factory(protocol)
		if err != nil {
			r.logger.Error("Failed to create resolver", zap.String("protocol", protocol), zap.Error(err))
			continue
		}

		result := op(res)
		if result != domain.ResultFailed {
			return result
		}
		if res.Succeeded() > 0 {
			r.logger.Debug("Playlist partially failed, not retrying", zap.String("protocol", protocol))
			return result
		}
	}
	return domain.ResultFailed
}
