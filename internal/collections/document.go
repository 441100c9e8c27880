package collections

// KeyField is the document field holding the stable identifier.
const KeyField = "id"

// System-assigned fields stamped by backends on insert. They are stripped
// before reinsertion so a restored document is accepted as new.
var systemFields = []string{"_seq", "_stored_at"}

// Document is one keyed record in a collection.
type Document map[string]any

// Key returns the document identifier, or "" when unset.
func (d Document) Key() string {
	id, _ := d[KeyField].(string)
	return id
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// StripSystemFields returns a copy of the document without backend-assigned
// fields.
func StripSystemFields(d Document) Document {
	out := d.Clone()
	for _, f := range systemFields {
		delete(out, f)
	}
	return out
}

// Keys extracts the identifiers of the given documents, skipping unkeyed ones.
func Keys(docs []Document) []string {
	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		if k := d.Key(); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
