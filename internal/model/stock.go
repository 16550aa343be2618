package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Column keys of the exchange price table. The presentation layer reads
// records by these exact keys, in this order.
const (
	KeyDayHigh        = "أقصى_سعر"
	KeyDayLow         = "أدنى_سعر"
	KeyClose          = "إغلاق"
	KeyPreviousClose  = "إقفال_سابق"
	KeyChange         = "التغير"
	KeyChangePercent  = "%التغيير"
	KeyBidSessionHigh = "أعلى"
	KeyBidSessionLow  = "الأدنى"
	KeyBid            = "الطلب"
	KeyAsk            = "العرض"
	KeyLastPrice      = "أخر_سعر"
	KeyShortName      = "الإسم_المختصر"
	KeyTradedVolume   = "حجم_التداول"
)

// Columns lists the table keys in positional order.
var Columns = [ColumnCount]string{
	KeyDayHigh, KeyDayLow, KeyClose, KeyPreviousClose, KeyChange, KeyChangePercent,
	KeyBidSessionHigh, KeyBidSessionLow, KeyBid, KeyAsk, KeyLastPrice,
	KeyShortName, KeyTradedVolume,
}

// ColumnCount is the minimum number of cells a table row needs to become a record.
const ColumnCount = 13

// nameColumn is the position of the short name within Columns.
const nameColumn = 11

// Value is a table cell that is either a number or the original text.
// Placeholder cells such as "—" or "" stay text.
type Value struct {
	Num   float64
	Text  string
	IsNum bool
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{Num: f, IsNum: true} }

// Text returns a text Value.
func Text(s string) Value { return Value{Text: s} }

// ParseValue converts trimmed cell text to a number when it is a finite
// decimal, otherwise keeps the text as is.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Text(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Text(s)
	}
	return Number(f)
}

// Float returns the numeric value and whether the cell was numeric.
func (v Value) Float() (float64, bool) {
	return v.Num, v.IsNum
}

func (v Value) String() string {
	if v.IsNum {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return v.Text
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNum {
		return []byte(strconv.FormatFloat(v.Num, 'f', -1, 64)), nil
	}
	return json.Marshal(v.Text)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*v = Text("")
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	*v = Number(f)
	return nil
}

// StockRecord is one row of the price table for one listed instrument.
// ShortName is the only identifier the source provides and is not
// guaranteed to be unique.
type StockRecord struct {
	DayHigh        Value
	DayLow         Value
	Close          Value
	PreviousClose  Value
	Change         Value
	ChangePercent  Value
	BidSessionHigh Value
	BidSessionLow  Value
	Bid            Value
	Ask            Value
	LastPrice      Value
	ShortName      string
	TradedVolume   Value
}

// RecordFromCells maps cells positionally onto a record. It returns false
// when there are fewer than ColumnCount cells or the name is blank.
func RecordFromCells(cells []string) (StockRecord, bool) {
	if len(cells) < ColumnCount {
		return StockRecord{}, false
	}
	name := strings.TrimSpace(cells[nameColumn])
	if name == "" {
		return StockRecord{}, false
	}
	return StockRecord{
		DayHigh:        ParseValue(cells[0]),
		DayLow:         ParseValue(cells[1]),
		Close:          ParseValue(cells[2]),
		PreviousClose:  ParseValue(cells[3]),
		Change:         ParseValue(cells[4]),
		ChangePercent:  ParseValue(cells[5]),
		BidSessionHigh: ParseValue(cells[6]),
		BidSessionLow:  ParseValue(cells[7]),
		Bid:            ParseValue(cells[8]),
		Ask:            ParseValue(cells[9]),
		LastPrice:      ParseValue(cells[10]),
		ShortName:      name,
		TradedVolume:   ParseValue(cells[12]),
	}, true
}

// values returns pointers to the numeric-or-text fields, keyed by column.
func (r *StockRecord) values() map[string]*Value {
	return map[string]*Value{
		KeyDayHigh:        &r.DayHigh,
		KeyDayLow:         &r.DayLow,
		KeyClose:          &r.Close,
		KeyPreviousClose:  &r.PreviousClose,
		KeyChange:         &r.Change,
		KeyChangePercent:  &r.ChangePercent,
		KeyBidSessionHigh: &r.BidSessionHigh,
		KeyBidSessionLow:  &r.BidSessionLow,
		KeyBid:            &r.Bid,
		KeyAsk:            &r.Ask,
		KeyLastPrice:      &r.LastPrice,
		KeyTradedVolume:   &r.TradedVolume,
	}
}

// MarshalJSON writes the record as a flat object keyed by the Arabic
// column names, in table order.
func (r StockRecord) MarshalJSON() ([]byte, error) {
	vals := r.values()
	var b bytes.Buffer
	b.WriteByte('{')
	for i, key := range Columns {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		b.Write(k)
		b.WriteByte(':')
		var (
			v   []byte
			err error
		)
		if key == KeyShortName {
			v, err = json.Marshal(r.ShortName)
		} else {
			v, err = vals[key].MarshalJSON()
		}
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (r *StockRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var rec StockRecord
	vals := rec.values()
	for key, msg := range raw {
		if key == KeyShortName {
			if err := json.Unmarshal(msg, &rec.ShortName); err != nil {
				return fmt.Errorf("unmarshal %s: %w", key, err)
			}
			continue
		}
		if v, ok := vals[key]; ok {
			if err := v.UnmarshalJSON(msg); err != nil {
				return fmt.Errorf("unmarshal %s: %w", key, err)
			}
		}
	}
	*r = rec
	return nil
}
