package chef

import (
	"storyweaver-chef/lib/scrapers/africanstorybook"

	"github.com/google/uuid"
)

// African Storybook books are republished on StoryWeaver under this
// publisher name; when the same title exists in exactly one entry of the
// external catalog, the emitted node adopts that catalog's identity so the
// two sources don't produce duplicate content.
const africanStorybookPublisher = "African Storybook Initiative"

// name-based namespaces, stable for a given source domain
var storyWeaverNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("storyweaver.org.in"))
var africanStorybookNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("www.africanstorybook.org"))

type crossrefResolver struct {
	index africanstorybook.Index
}

// resolve returns the namespace and identifier a book should be published
// under. Ambiguous cross-reference matches keep the primary identity.
func (r crossrefResolver) resolve(book Book) (uuid.UUID, string) {
	if book.Publisher == africanStorybookPublisher {
		if rec, ok := r.index.Lookup(book.Title); ok {
			return africanStorybookNamespace, rec.Id
		}
	}
	return storyWeaverNamespace, book.SourceId
}
