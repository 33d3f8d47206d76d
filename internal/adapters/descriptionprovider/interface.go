package descriptionprovider

import (
	"context"

	"github.com/wikifind/wikifind/internal/domain"
)

type DescriptionProvider interface {
	// Descriptions returns one-line entity descriptions in the given language,
	// keyed by entity id. Ids without a description in that language are
	// absent from the result. An empty id list yields an empty map.
	//
	// Raises domain.ErrUpstreamThrottled if the provider was rate limited.
	//
	// Raises domain.ErrTemporarilyUnavailable for errors believed to be intermittent. The call may be retried later.
	//
	// Raises domain.ErrMalformedResponse if the response could not be interpreted.
	Descriptions(ctx context.Context, language domain.Language, entityIDs []string) (map[string]string, error)
}
