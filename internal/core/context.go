package core

import "context"

type sourceKey struct{}

// Source identifies the client that submitted a request.
type Source struct {
	IP        string
	UserAgent string
}

// WithSource records the client on ctx. CommitImport stores the IP on the
// import history entry and logs both fields.
func WithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

// SourceFromContext returns the recorded client, or the zero Source.
func SourceFromContext(ctx context.Context) Source {
	src, _ := ctx.Value(sourceKey{}).(Source)
	return src
}
