package provider

import "context"

// DefaultDelimiter separates virtual directory levels in object keys.
const DefaultDelimiter = "/"

// DelimiterLister supports delimiter-based listing.
//
// This backs the virtual directory view. Delimiter listing returns:
//   - Objects directly under Prefix (no nested delimiter in the remainder)
//   - CommonPrefixes (immediate child prefixes)
//
// Implementations should map to provider-native delimiter listing when available
// (S3 ListObjectsV2 with Delimiter, Azure ListBlobsHierarchy).
//
// Some stores echo the requested prefix back as one of its own CommonPrefixes;
// callers are expected to filter that entry.
type DelimiterLister interface {
	ListWithDelimiter(ctx context.Context, opts ListWithDelimiterOptions) (*ListWithDelimiterResult, error)
}

// ListWithDelimiterOptions configures a delimiter listing operation.
type ListWithDelimiterOptions struct {
	// Container is the container (bucket) to list. Required.
	Container string

	// Prefix filters results to keys starting with this value.
	Prefix string

	// Delimiter groups keys. Empty means DefaultDelimiter.
	Delimiter string

	// ContinuationToken resumes listing from a previous ListWithDelimiterResult.
	ContinuationToken string

	// MaxKeys limits the number of keys returned per page.
	MaxKeys int
}

// ListWithDelimiterResult contains a page of results from a delimiter listing.
type ListWithDelimiterResult struct {
	// Objects are object summaries directly under the requested Prefix.
	Objects []ObjectSummary

	// CommonPrefixes are the immediate child prefixes, each ending in the delimiter.
	CommonPrefixes []string

	// ContinuationToken is used to retrieve the next page.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// EffectiveDelimiter returns the delimiter to use for opts.
func (o ListWithDelimiterOptions) EffectiveDelimiter() string {
	if o.Delimiter == "" {
		return DefaultDelimiter
	}
	return o.Delimiter
}
