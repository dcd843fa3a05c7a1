package africanstorybook

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const landingPage = `<html><head>
<script>
var somethingElse = 1;
</script>
<script>
var bookItems = [
	{id: "as-1", title: "The Lion King"},
	{id: "as-2", title: "Counting &amp; Colours"},
	{id: "as-3", title: "Two Dogs"},
	{id: "as-4", title: "Two Dogs"},
];
</script>
</head><body></body></html>`

func TestFetchIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, landingPage)
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)

	index, err := client.FetchIndex(context.Background())
	require.NoError(t, err)

	rec, ok := index.Lookup("The Lion King")
	require.True(t, ok)
	require.Equal(t, "as-1", rec.Id)

	// html entities in titles get decoded before indexing
	rec, ok = index.Lookup("Counting & Colours")
	require.True(t, ok)
	require.Equal(t, "as-2", rec.Id)
}

func TestLookupNormalization(t *testing.T) {
	index := Index{}
	index.add(Record{Id: "as-1", Title: "The Lion King"})

	for _, title := range []string{
		"the lion king",
		"The Lion King",
		"THE LION KING   ",
		"The Lion King\t\n",
	} {
		rec, ok := index.Lookup(title)
		require.True(t, ok, "title %q should resolve", title)
		require.Equal(t, "as-1", rec.Id)
	}
}

func TestLookupAmbiguous(t *testing.T) {
	index := Index{}
	index.add(Record{Id: "as-3", Title: "Two Dogs"})
	index.add(Record{Id: "as-4", Title: "Two Dogs"})

	_, ok := index.Lookup("Two Dogs")
	require.False(t, ok, "ambiguous titles must not resolve")
}

func TestLookupUnknown(t *testing.T) {
	index := Index{}
	index.add(Record{Id: "as-1", Title: "The Lion King"})

	_, ok := index.Lookup("An Unrelated Story")
	require.False(t, ok)
}
