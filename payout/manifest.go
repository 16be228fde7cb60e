package payout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid decimal amount")

type JobKind string

const (
	JobKindFortune                 JobKind = "fortune"
	JobKindImagePoints             JobKind = "image_points"
	JobKindImageBoxes              JobKind = "image_boxes"
	JobKindImageBoxesFromPoints    JobKind = "image_boxes_from_points"
	JobKindImageSkeletonsFromBoxes JobKind = "image_skeletons_from_boxes"
	JobKindImagePolygons           JobKind = "image_polygons"
)

type Manifest struct {
	RequestType         JobKind       `json:"requestType"`
	SubmissionsRequired int           `json:"submissionsRequired"`
	FundAmount          Decimal       `json:"fundAmount"`
	Annotation          *CvatSettings `json:"annotation"`
	JobBounty           Decimal       `json:"job_bounty"`
}

type CvatSettings struct {
	Type JobKind `json:"type"`
}

// Kind returns the declared job kind. Fortune manifests carry it in
// requestType, CVAT manifests in annotation.type.
func (m *Manifest) Kind() JobKind {
	if m.RequestType != "" {
		return JobKind(strings.ToLower(string(m.RequestType)))
	}
	if m.Annotation != nil {
		return m.Annotation.Type
	}
	return ""
}

// Decimal is a token amount in whole units, accepted both as a JSON number
// and as a JSON string.
type Decimal string

func (d *Decimal) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Decimal(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = Decimal(n)
	return nil
}

// Units converts the amount to its integer representation with the given
// number of decimals, e.g. Decimal("1.5").Units(18) is 1.5e18.
func (d Decimal) Units(decimals int) (*big.Int, error) {
	s := strings.TrimSpace(string(d))
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("%q has more than %d decimals: %w", s, decimals, ErrInvalidAmount)
	}
	frac += strings.Repeat("0", decimals-len(frac))
	res, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || res.Sign() < 0 {
		return nil, fmt.Errorf("can't parse %q: %w", s, ErrInvalidAmount)
	}
	return res, nil
}
