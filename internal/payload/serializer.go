// Package payload encodes a compiled diff into the multipart wire
// format the persistence API expects.
//
// Conventions, per slot X:
//
//	X          binary field, present only for an add or replace
//	remove_X   "true", present only for a pure removal
//	cancel_X   "true", present when an existing file is superseded by a
//	           new upload; field X then carries the replacement
//
// Collection fields are gated by update_collection; slot-only commits
// omit them entirely.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"

	"github.com/TheMichaelB/schoolctl/internal/diff"
	"github.com/TheMichaelB/schoolctl/internal/models"
)

// Field names independent of slot naming.
const (
	FieldUpdateCollection = "update_collection"
	FieldRemovedItems     = "removed_items"
	FieldMetadataUpdates  = "metadata_updates"
)

// Payload is an encoded multipart body ready for submission.
type Payload struct {
	ContentType string
	Body        []byte

	// Fields lists the emitted field names in order, for logging and
	// tests; it is not transmitted.
	Fields []string
}

// Empty reports whether the payload carries no attachment fields.
func (p *Payload) Empty() bool {
	return len(p.Fields) == 0
}

// RemovedItem is one entry of the removed_items list.
type RemovedItem struct {
	IdentityKey string `json:"identity_key"`
	DisplayName string `json:"display_name"`
}

// Serialize encodes a diff deterministically: slot fields in compiled
// order, then the collection gate and its fields. A diff compiled from
// a clean store yields a payload with zero attachment fields.
func Serialize(d *diff.Diff) (*Payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	p := &Payload{}

	for _, ch := range d.Slots {
		switch ch.Op {
		case diff.OpRemove:
			if err := writeField(w, p, "remove_"+ch.Slot, "true"); err != nil {
				return nil, err
			}
		case diff.OpReplace:
			if err := writeField(w, p, "cancel_"+ch.Slot, "true"); err != nil {
				return nil, err
			}
			if err := writeFile(w, p, ch.Slot, ch.File); err != nil {
				return nil, err
			}
		case diff.OpAdd:
			if err := writeFile(w, p, ch.Slot, ch.File); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("slot %s: unexpected op %s", ch.Slot, ch.Op)
		}
	}

	if d.Collection != nil {
		if err := serializeCollection(w, p, d.Collection); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	p.ContentType = w.FormDataContentType()
	p.Body = buf.Bytes()
	return p, nil
}

func serializeCollection(w *multipart.Writer, p *Payload, cd *diff.CollectionDiff) error {
	if err := writeField(w, p, FieldUpdateCollection, "true"); err != nil {
		return err
	}

	if len(cd.Removed) > 0 {
		removed := make([]RemovedItem, len(cd.Removed))
		for i, ref := range cd.Removed {
			removed[i] = RemovedItem{IdentityKey: ref.IdentityKey, DisplayName: ref.DisplayName}
		}
		if err := writeJSONField(w, p, FieldRemovedItems, removed); err != nil {
			return err
		}
	}

	for i, item := range cd.NewItems {
		if err := writeFile(w, p, fmt.Sprintf("item_file_%d", i), item.File); err != nil {
			return err
		}
		if err := writeField(w, p, fmt.Sprintf("item_year_%d", i), item.Year); err != nil {
			return err
		}
		if err := writeField(w, p, fmt.Sprintf("item_desc_%d", i), item.Description); err != nil {
			return err
		}
		if item.ReplacesIdentity != "" {
			if err := writeField(w, p, fmt.Sprintf("replaces_identity_%d", i), item.ReplacesIdentity); err != nil {
				return err
			}
		}
	}

	if len(cd.MetadataUpdates) > 0 {
		if err := writeJSONField(w, p, FieldMetadataUpdates, cd.MetadataUpdates); err != nil {
			return err
		}
	}
	return nil
}

func writeField(w *multipart.Writer, p *Payload, name, value string) error {
	if err := w.WriteField(name, value); err != nil {
		return fmt.Errorf("write field %s: %w", name, err)
	}
	p.Fields = append(p.Fields, name)
	return nil
}

func writeJSONField(w *multipart.Writer, p *Payload, name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal field %s: %w", name, err)
	}
	return writeField(w, p, name, string(data))
}

func writeFile(w *multipart.Writer, p *Payload, field string, file *models.FileBlob) error {
	if file == nil {
		return fmt.Errorf("field %s: no file staged", field)
	}
	fw, err := w.CreateFormFile(field, file.Name)
	if err != nil {
		return fmt.Errorf("create file field %s: %w", field, err)
	}
	if _, err := fw.Write(file.Data); err != nil {
		return fmt.Errorf("write file field %s: %w", field, err)
	}
	p.Fields = append(p.Fields, field)
	return nil
}
