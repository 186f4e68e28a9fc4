package ingest

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/david/volunteer-connect/internal/models"
)

// InstanceRecord adapts an in-memory canonical instance to the tagger's
// Record capability.
type InstanceRecord struct {
	Instance *models.Instance
}

func (r *InstanceRecord) GetVal(field string) string {
	inst := r.Instance
	switch field {
	case FieldTitle:
		return inst.Title
	case FieldDescription:
		return inst.Description
	case FieldOrgName:
		return inst.Org.Name
	case FieldDetailURL:
		return inst.DetailURL
	case FieldStartDate:
		if inst.Schedule.OpenEnded || inst.Schedule.StartDate.IsZero() {
			return ""
		}
		return inst.Schedule.StartDate.Format("2006-01-02")
	case FieldEndDate:
		if inst.Schedule.OpenEnded || inst.Schedule.EndDate.IsZero() {
			return ""
		}
		return inst.Schedule.EndDate.Format("2006-01-02")
	case FieldCity:
		return inst.Location.City
	case FieldRegion:
		return inst.Location.Region
	default:
		return ""
	}
}

func (r *InstanceRecord) AddTag(tag string) {
	r.Instance.Tags = appendTagUnique(r.Instance.Tags, tag)
}

// XMLRecord adapts one element of a parsed XML feed document. GetVal reads
// the text of the first matching child element; AddTag appends a <tag> child
// so the tag survives re-serialization of the document.
type XMLRecord struct {
	Node *xmlquery.Node
}

func (r *XMLRecord) GetVal(field string) string {
	if r.Node == nil {
		return ""
	}
	if n := xmlquery.FindOne(r.Node, field); n != nil {
		return cleanText(n.InnerText())
	}
	// Feeds disagree on casing; fall back to a case-insensitive scan.
	for child := r.Node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && strings.EqualFold(child.Data, field) {
			return cleanText(child.InnerText())
		}
	}
	return ""
}

func (r *XMLRecord) AddTag(tag string) {
	if r.Node == nil {
		return
	}
	elem := &xmlquery.Node{Type: xmlquery.ElementNode, Data: "tag"}
	text := &xmlquery.Node{Type: xmlquery.TextNode, Data: tag}
	elem.FirstChild = text
	elem.LastChild = text
	text.Parent = elem

	elem.Parent = r.Node
	if r.Node.LastChild != nil {
		r.Node.LastChild.NextSibling = elem
		elem.PrevSibling = r.Node.LastChild
	} else {
		r.Node.FirstChild = elem
	}
	r.Node.LastChild = elem
}

// Tags returns the record's accumulated <tag> children in document order.
func (r *XMLRecord) Tags() []string {
	if r.Node == nil {
		return nil
	}
	var tags []string
	for child := r.Node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == "tag" {
			tags = append(tags, cleanText(child.InnerText()))
		}
	}
	return tags
}

// RawRecordFromXML flattens an XML opportunity element into the ordered
// field mapping the extractor consumes.
func RawRecordFromXML(node *xmlquery.Node) *RawRecord {
	rec := NewRawRecord(nil)
	if node == nil {
		return rec
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		rec.Set(child.Data, cleanText(child.InnerText()))
	}
	return rec
}
