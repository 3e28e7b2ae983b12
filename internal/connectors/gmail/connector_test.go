package gmail

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"ordermail/internal"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   internal.SearchQuery
		exclude string
		want    string
	}{
		{
			name:    "single sender exact subject",
			query:   internal.SearchQuery{From: []string{"prepworx@example.com"}, Subject: "has been processed", Exact: true},
			exclude: "PrepWorx/Processed",
			want:    `from:prepworx@example.com subject:"has been processed" -label:PrepWorx-Processed`,
		},
		{
			name:  "several senders loose subject",
			query: internal.SearchQuery{From: []string{"a@x.com", "b@x.com"}, Subject: "order confirmation"},
			want:  `from:(a@x.com OR b@x.com) subject:(order confirmation)`,
		},
		{
			name:    "label with spaces",
			query:   internal.SearchQuery{From: []string{"a@x.com"}},
			exclude: "Retailer Orders/Processed",
			want:    `from:a@x.com -label:Retailer-Orders-Processed`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.query, tt.exclude))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&googleapi.Error{Code: 429}))
	assert.True(t, isRetryable(fmt.Errorf("list: %w", &googleapi.Error{Code: 503})))
	assert.False(t, isRetryable(&googleapi.Error{Code: 404}))
	assert.False(t, isRetryable(errors.New("boom")))
}

func TestDecodeBase64URL(t *testing.T) {
	raw := []byte("Subject: hi\r\n\r\nbody??>>")
	got, err := decodeBase64URL(base64.RawURLEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = decodeBase64URL(base64.URLEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = decodeBase64URL("!!!")
	assert.Error(t, err)
}
