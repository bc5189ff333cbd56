// Package metadata encodes order context into the flat string map the payment
// gateway attaches to a payment-intent, and decodes it back during
// reconciliation. The gateway caps values at 500 characters, so line items are
// packed into a single field.
package metadata

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	keyKind      = "kind"
	keyEmail     = "email"
	keyItems     = "items"
	keyCertType  = "cert_type"
	keyProject   = "project"
	keyDonorName = "donor_name"
	keyMessage   = "message"
	keyAnonymous = "anonymous"

	// keyLegacyProjects was written by an earlier checkout revision: a
	// comma-separated list of project codes with implied quantity 1.
	keyLegacyProjects = "project_ids"

	// maxValueLen mirrors the gateway's per-value limit.
	maxValueLen = 500
)

var (
	ErrTooLarge = errors.New("metadata_too_large")
	ErrInvalid  = errors.New("metadata_invalid")
)

// Kind discriminates the two shapes an order can take.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindDonation Kind = "donation"
)

// Item is one line of a purchase order.
type Item struct {
	ProjectCode string
	Quantity    int64
	// UnitPrice is the per-m² price in minor units captured at checkout time.
	UnitPrice int64
}

// Metadata is the decoded order context. Purchase orders carry Items; donation
// orders carry the donation fields instead.
type Metadata struct {
	Kind            Kind
	Email           string
	Items           []Item
	CertificateType string

	ProjectCode string
	DonorName   string
	Message     string
	Anonymous   bool

	// Legacy is set when the map came from the pre-items format and the
	// quantities are implied rather than recorded.
	Legacy bool
}

// Encode flattens m into the gateway metadata map.
func Encode(m Metadata) (map[string]string, error) {
	out := map[string]string{keyKind: string(m.Kind)}
	if m.Email != "" {
		out[keyEmail] = m.Email
	}

	switch m.Kind {
	case KindPurchase:
		if len(m.Items) == 0 {
			return nil, fmt.Errorf("%w: purchase without items", ErrInvalid)
		}
		packed := packItems(m.Items)
		if len(packed) > maxValueLen {
			return nil, fmt.Errorf("%w: %d items exceed the gateway value limit", ErrTooLarge, len(m.Items))
		}
		out[keyItems] = packed
		if m.CertificateType != "" {
			out[keyCertType] = m.CertificateType
		}
	case KindDonation:
		if m.ProjectCode != "" {
			out[keyProject] = m.ProjectCode
		}
		if m.DonorName != "" {
			out[keyDonorName] = m.DonorName
		}
		if m.Message != "" {
			out[keyMessage] = truncate(m.Message, maxValueLen)
		}
		if m.Anonymous {
			out[keyAnonymous] = "true"
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalid, m.Kind)
	}
	return out, nil
}

// Decode parses a gateway metadata map. It is deliberately tolerant: maps
// written by the legacy checkout (project_ids) decode into quantity-1 items,
// and unknown keys are ignored. Decode only fails when the map carries no
// usable order context at all.
func Decode(raw map[string]string) (Metadata, error) {
	m := Metadata{
		Kind:            Kind(strings.TrimSpace(raw[keyKind])),
		Email:           strings.TrimSpace(raw[keyEmail]),
		CertificateType: strings.TrimSpace(raw[keyCertType]),
	}

	switch m.Kind {
	case KindDonation:
		m.ProjectCode = strings.TrimSpace(raw[keyProject])
		m.DonorName = strings.TrimSpace(raw[keyDonorName])
		m.Message = raw[keyMessage]
		m.Anonymous = strings.EqualFold(strings.TrimSpace(raw[keyAnonymous]), "true")
		return m, nil
	case KindPurchase, "":
		// fall through to item parsing; a missing kind is treated as a
		// purchase when items can be recovered.
	default:
		return Metadata{}, fmt.Errorf("%w: unknown kind %q", ErrInvalid, m.Kind)
	}

	if packed := strings.TrimSpace(raw[keyItems]); packed != "" {
		items := unpackItems(packed)
		if len(items) > 0 {
			m.Kind = KindPurchase
			m.Items = items
			return m, nil
		}
	}

	if legacy := strings.TrimSpace(raw[keyLegacyProjects]); legacy != "" {
		m.Kind = KindPurchase
		m.Legacy = true
		for _, code := range strings.Split(legacy, ",") {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			m.Items = append(m.Items, Item{ProjectCode: code, Quantity: 1})
		}
		if len(m.Items) > 0 {
			return m, nil
		}
	}

	return Metadata{}, fmt.Errorf("%w: no order context", ErrInvalid)
}

// FromAny converts a JSON-decoded metadata map (string keys, any values) into
// the string map Decode expects. Non-string values are stringified.
func FromAny(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

// packItems serializes items as "code:qty:unitPrice" segments joined by "|".
func packItems(items []Item) string {
	segs := make([]string, 0, len(items))
	for _, it := range items {
		segs = append(segs, fmt.Sprintf("%s:%d:%d", it.ProjectCode, it.Quantity, it.UnitPrice))
	}
	return strings.Join(segs, "|")
}

func unpackItems(packed string) []Item {
	var items []Item
	for _, seg := range strings.Split(packed, "|") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		parts := strings.Split(seg, ":")
		if len(parts) < 2 {
			continue
		}
		code := strings.TrimSpace(parts[0])
		qty, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil || code == "" || qty <= 0 {
			continue
		}
		item := Item{ProjectCode: code, Quantity: qty}
		if len(parts) >= 3 {
			if price, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64); err == nil && price >= 0 {
				item.UnitPrice = price
			}
		}
		items = append(items, item)
	}
	return items
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
