package token

import "context"

type contextKey struct{}

// ContextWithToken returns a context carrying a raw identity token.
func ContextWithToken(ctx context.Context, tokenValue string) context.Context {
	return context.WithValue(ctx, contextKey{}, tokenValue)
}

// FromContext extracts the raw identity token carried by the context.
func FromContext(ctx context.Context) (string, bool) {
	tokenValue, ok := ctx.Value(contextKey{}).(string)
	if !ok || tokenValue == "" {
		return "", false
	}
	return tokenValue, true
}
