// Package pdfcpu backs the document contract with github.com/pdfcpu/pdfcpu.
// Pages expose text runs through a content stream interpreter; text deletion
// rewrites the content stream in place, so removed glyphs do not survive in
// the output file.
package pdfcpu

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/redactor/pdfdoc"
)

// Opener opens PDFs through pdfcpu. The zero value is ready to use.
type Opener struct {
	// Conf overrides the pdfcpu configuration. Nil means defaults.
	Conf *model.Configuration
}

// Open parses and validates the document. Encrypted input without a working
// password maps to ErrPasswordRequired; any other parse failure is an
// InputError.
func (o Opener) Open(rs io.ReadSeeker, password string) (pdfdoc.Document, error) {
	conf := o.Conf
	if conf == nil {
		conf = model.NewDefaultConfiguration()
	}
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}
	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "password") {
			return nil, &pdfdoc.InputError{Err: pdfdoc.ErrPasswordRequired}
		}
		return nil, &pdfdoc.InputError{Err: err}
	}
	return &Document{ctx: ctx}, nil
}

// Document is a pdfcpu-backed pdfdoc.Document.
type Document struct {
	ctx   *model.Context
	pages map[int]*Page
}

func (d *Document) PageCount() int { return d.ctx.PageCount }

func (d *Document) Page(index int) (pdfdoc.Page, error) {
	if index < 0 || index >= d.ctx.PageCount {
		return nil, fmt.Errorf("page %d out of range 0..%d", index, d.ctx.PageCount-1)
	}
	if d.pages == nil {
		d.pages = make(map[int]*Page)
	}
	p, ok := d.pages[index]
	if !ok {
		p = &Page{doc: d, index: index}
		d.pages[index] = p
	}
	return p, nil
}

func (d *Document) Inspect() (pdfdoc.Inspection, error) {
	var insp pdfdoc.Inspection
	insp.MetadataFields = d.infoFields()
	insp.Encrypted = d.ctx.Encrypt != nil

	catalog, err := d.ctx.Catalog()
	if err != nil {
		return insp, fmt.Errorf("catalog: %w", err)
	}
	if _, found := catalog.Find("Metadata"); found {
		insp.HasXMP = true
	}
	insp.JavaScript = d.countNames(catalog, "JavaScript")
	if _, found := catalog.Find("OpenAction"); found {
		insp.JavaScript++
	}
	if _, found := catalog.Find("AA"); found {
		insp.JavaScript++
	}
	insp.EmbeddedFiles = d.countNames(catalog, "EmbeddedFiles")
	insp.FormFields = d.countFormFields(catalog)

	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		pageDict, _, _, err := d.ctx.PageDict(pageNr, false)
		if err != nil || pageDict == nil {
			continue
		}
		if _, found := pageDict.Find("Thumb"); found {
			insp.Thumbnails++
		}
		insp.Links += len(d.pageAnnots(pageDict, "Link"))
		insp.EmbeddedFiles += len(d.pageAnnots(pageDict, "FileAttachment"))
	}
	return insp, nil
}

func (d *Document) RemoveMetadata() ([]string, error) {
	fields := d.infoFields()
	d.ctx.Info = nil

	catalog, err := d.ctx.Catalog()
	if err != nil {
		return fields, fmt.Errorf("catalog: %w", err)
	}
	if _, found := catalog.Find("Metadata"); found {
		catalog.Delete("Metadata")
		fields = append(fields, "XMP")
	}
	return fields, nil
}

func (d *Document) RemoveJavaScript() (int, error) {
	catalog, err := d.ctx.Catalog()
	if err != nil {
		return 0, fmt.Errorf("catalog: %w", err)
	}
	removed := d.countNames(catalog, "JavaScript")
	d.deleteNames(catalog, "JavaScript")
	if _, found := catalog.Find("OpenAction"); found {
		catalog.Delete("OpenAction")
		removed++
	}
	if _, found := catalog.Find("AA"); found {
		catalog.Delete("AA")
		removed++
	}
	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		pageDict, _, _, err := d.ctx.PageDict(pageNr, false)
		if err != nil || pageDict == nil {
			continue
		}
		if _, found := pageDict.Find("AA"); found {
			pageDict.Delete("AA")
			removed++
		}
	}
	return removed, nil
}

func (d *Document) RemoveEmbeddedFiles() (int, error) {
	catalog, err := d.ctx.Catalog()
	if err != nil {
		return 0, fmt.Errorf("catalog: %w", err)
	}
	removed := d.countNames(catalog, "EmbeddedFiles")
	d.deleteNames(catalog, "EmbeddedFiles")
	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		pageDict, _, _, err := d.ctx.PageDict(pageNr, false)
		if err != nil || pageDict == nil {
			continue
		}
		removed += d.removeAnnots(pageDict, "FileAttachment")
	}
	return removed, nil
}

func (d *Document) RemoveLinks() (int, error) {
	removed := 0
	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		pageDict, _, _, err := d.ctx.PageDict(pageNr, false)
		if err != nil || pageDict == nil {
			continue
		}
		removed += d.removeAnnots(pageDict, "Link")
	}
	return removed, nil
}

// FlattenForms drops the interactive form dictionary while leaving widget
// annotations and their appearance streams on the pages, so filled values
// stay visible but are no longer fields.
func (d *Document) FlattenForms() (int, error) {
	catalog, err := d.ctx.Catalog()
	if err != nil {
		return 0, fmt.Errorf("catalog: %w", err)
	}
	count := d.countFormFields(catalog)
	if _, found := catalog.Find("AcroForm"); found {
		catalog.Delete("AcroForm")
	}
	return count, nil
}

func (d *Document) RemoveThumbnails() (int, error) {
	removed := 0
	catalog, err := d.ctx.Catalog()
	if err != nil {
		return 0, fmt.Errorf("catalog: %w", err)
	}
	if _, found := catalog.Find("PieceInfo"); found {
		catalog.Delete("PieceInfo")
		removed++
	}
	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		pageDict, _, _, err := d.ctx.PageDict(pageNr, false)
		if err != nil || pageDict == nil {
			continue
		}
		if _, found := pageDict.Find("Thumb"); found {
			pageDict.Delete("Thumb")
			removed++
		}
		if _, found := pageDict.Find("PieceInfo"); found {
			pageDict.Delete("PieceInfo")
			removed++
		}
	}
	return removed, nil
}

func (d *Document) Save(w io.Writer) error {
	if err := api.WriteContext(d.ctx, w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (d *Document) infoFields() []string {
	if d.ctx.Info == nil {
		return nil
	}
	dict, err := d.ctx.DereferenceDict(*d.ctx.Info)
	if err != nil || dict == nil {
		return nil
	}
	fields := make([]string, 0, len(dict))
	for k := range dict {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// countNames counts the leaves of a catalog name tree such as JavaScript or
// EmbeddedFiles. One nesting level of kids is enough in practice.
func (d *Document) countNames(catalog types.Dict, tree string) int {
	node := d.namesNode(catalog, tree)
	if node == nil {
		return 0
	}
	return d.countNameTree(node, 0)
}

func (d *Document) countNameTree(node types.Dict, depth int) int {
	if depth > 4 {
		return 0
	}
	count := 0
	if obj, found := node.Find("Names"); found {
		if arr, err := d.ctx.DereferenceArray(obj); err == nil {
			count += len(arr) / 2
		}
	}
	if obj, found := node.Find("Kids"); found {
		if kids, err := d.ctx.DereferenceArray(obj); err == nil {
			for _, kid := range kids {
				if kd, err := d.ctx.DereferenceDict(kid); err == nil && kd != nil {
					count += d.countNameTree(kd, depth+1)
				}
			}
		}
	}
	return count
}

func (d *Document) namesNode(catalog types.Dict, tree string) types.Dict {
	obj, found := catalog.Find("Names")
	if !found {
		return nil
	}
	names, err := d.ctx.DereferenceDict(obj)
	if err != nil || names == nil {
		return nil
	}
	sub, found := names.Find(tree)
	if !found {
		return nil
	}
	node, err := d.ctx.DereferenceDict(sub)
	if err != nil {
		return nil
	}
	return node
}

func (d *Document) deleteNames(catalog types.Dict, tree string) {
	obj, found := catalog.Find("Names")
	if !found {
		return
	}
	names, err := d.ctx.DereferenceDict(obj)
	if err != nil || names == nil {
		return
	}
	names.Delete(tree)
}

func (d *Document) countFormFields(catalog types.Dict) int {
	obj, found := catalog.Find("AcroForm")
	if !found {
		return 0
	}
	form, err := d.ctx.DereferenceDict(obj)
	if err != nil || form == nil {
		return 0
	}
	fieldsObj, found := form.Find("Fields")
	if !found {
		return 0
	}
	fields, err := d.ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return 0
	}
	return len(fields)
}

// pageAnnots returns the indices of annotations of the given subtype.
func (d *Document) pageAnnots(pageDict types.Dict, subtype string) []int {
	obj, found := pageDict.Find("Annots")
	if !found {
		return nil
	}
	annots, err := d.ctx.DereferenceArray(obj)
	if err != nil {
		return nil
	}
	var idx []int
	for i, a := range annots {
		ad, err := d.ctx.DereferenceDict(a)
		if err != nil || ad == nil {
			continue
		}
		if st, found := ad.Find("Subtype"); found {
			if name, ok := st.(types.Name); ok && string(name) == subtype {
				idx = append(idx, i)
			}
		}
	}
	return idx
}

func (d *Document) removeAnnots(pageDict types.Dict, subtype string) int {
	drop := d.pageAnnots(pageDict, subtype)
	if len(drop) == 0 {
		return 0
	}
	obj, _ := pageDict.Find("Annots")
	annots, err := d.ctx.DereferenceArray(obj)
	if err != nil {
		return 0
	}
	dropSet := make(map[int]bool, len(drop))
	for _, i := range drop {
		dropSet[i] = true
	}
	kept := make(types.Array, 0, len(annots)-len(drop))
	for i, a := range annots {
		if !dropSet[i] {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		pageDict.Delete("Annots")
	} else {
		pageDict.Update("Annots", kept)
	}
	return len(drop)
}
