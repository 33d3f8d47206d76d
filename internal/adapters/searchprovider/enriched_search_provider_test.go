package searchprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wikifind/wikifind/internal/domain"
)

type mockedSearchProvider struct {
	t *testing.T

	expectedQuery string
	articles      domain.ResultSet
	err           error

	calls int
}

func (m *mockedSearchProvider) Search(ctx context.Context, language domain.Language, query string) (domain.ResultSet, error) {
	m.calls++
	require.Equal(m.t, m.expectedQuery, query)
	return m.articles, m.err
}

type mockedDescriptionProvider struct {
	t *testing.T

	expectedEntityIDs []string
	descriptions      map[string]string
	err               error

	calls int
}

func (m *mockedDescriptionProvider) Descriptions(ctx context.Context, language domain.Language, entityIDs []string) (map[string]string, error) {
	m.calls++
	require.Equal(m.t, m.expectedEntityIDs, entityIDs)
	return m.descriptions, m.err
}

func TestEnrichedSearchProvider(t *testing.T) {
	t.Parallel()

	t.Run("decorates articles with descriptions", func(t *testing.T) {
		t.Parallel()

		inner := &mockedSearchProvider{
			t:             t,
			expectedQuery: "einstein",
			articles: domain.ResultSet{
				{Title: "Albert Einstein", WikidataID: "Q937"},
				{Title: "Einstein family"},
				{Title: "Einstein field equations", WikidataID: "Q273711"},
			},
		}
		descriptions := &mockedDescriptionProvider{
			t:                 t,
			expectedEntityIDs: []string{"Q937", "Q273711"},
			descriptions: map[string]string{
				"Q937": "German-born theoretical physicist",
			},
		}

		provider, err := NewEnrichedSearchProvider(inner, descriptions)
		require.NoError(t, err)

		articles, err := provider.Search(t.Context(), english(t), "einstein")

		require.NoError(t, err)
		require.Len(t, articles, 3)
		require.Equal(t, "German-born theoretical physicist", articles[0].Description)
		require.Empty(t, articles[1].Description)
		require.Empty(t, articles[2].Description, "entities without a description stay undecorated")
		require.Equal(t, 1, descriptions.calls)
	})

	t.Run("does not mutate the inner result set", func(t *testing.T) {
		t.Parallel()

		original := domain.ResultSet{{Title: "Albert Einstein", WikidataID: "Q937"}}
		inner := &mockedSearchProvider{
			t:             t,
			expectedQuery: "einstein",
			articles:      original,
		}
		descriptions := &mockedDescriptionProvider{
			t:                 t,
			expectedEntityIDs: []string{"Q937"},
			descriptions:      map[string]string{"Q937": "German-born theoretical physicist"},
		}

		provider, err := NewEnrichedSearchProvider(inner, descriptions)
		require.NoError(t, err)

		articles, err := provider.Search(t.Context(), english(t), "einstein")

		require.NoError(t, err)
		require.Equal(t, "German-born theoretical physicist", articles[0].Description)
		require.Empty(t, original[0].Description, "decoration must work on a copy")
	})

	t.Run("tolerates description lookup failure", func(t *testing.T) {
		t.Parallel()

		inner := &mockedSearchProvider{
			t:             t,
			expectedQuery: "einstein",
			articles:      domain.ResultSet{{Title: "Albert Einstein", WikidataID: "Q937"}},
		}
		descriptions := &mockedDescriptionProvider{
			t:                 t,
			expectedEntityIDs: []string{"Q937"},
			err:               assert.AnError,
		}

		provider, err := NewEnrichedSearchProvider(inner, descriptions)
		require.NoError(t, err)

		articles, err := provider.Search(t.Context(), english(t), "einstein")

		require.NoError(t, err, "description failures should not fail the search")
		require.Len(t, articles, 1)
		require.Empty(t, articles[0].Description)
	})

	t.Run("skips the lookup when no article has an entity id", func(t *testing.T) {
		t.Parallel()

		inner := &mockedSearchProvider{
			t:             t,
			expectedQuery: "einstein",
			articles:      domain.ResultSet{{Title: "Albert Einstein"}},
		}
		descriptions := &mockedDescriptionProvider{t: t}

		provider, err := NewEnrichedSearchProvider(inner, descriptions)
		require.NoError(t, err)

		articles, err := provider.Search(t.Context(), english(t), "einstein")

		require.NoError(t, err)
		require.Len(t, articles, 1)
		require.Equal(t, 0, descriptions.calls)
	})

	t.Run("propagates inner search failure", func(t *testing.T) {
		t.Parallel()

		inner := &mockedSearchProvider{
			t:             t,
			expectedQuery: "einstein",
			err:           assert.AnError,
		}
		descriptions := &mockedDescriptionProvider{t: t}

		provider, err := NewEnrichedSearchProvider(inner, descriptions)
		require.NoError(t, err)

		_, err = provider.Search(t.Context(), english(t), "einstein")

		require.ErrorIs(t, err, assert.AnError)
		require.Equal(t, 0, descriptions.calls)
	})
}
