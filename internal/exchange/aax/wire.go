package aax

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// envelope is the common response wrapper of private endpoints. Public market
// data endpoints omit code.
type envelope struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	TS      int64           `json:"ts"`
	Error   *struct {
		Code    wireCode `json:"code"`
		Message string   `json:"message"`
	} `json:"error"`
}

type pageData struct {
	List  []json.RawMessage `json:"list"`
	Total int               `json:"total"`
}

// wireCode is an enum code the venue sends either as a JSON number or string.
// Absent and null decode to "".
type wireCode string

func (c *wireCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = wireCode(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("code %s: %w", data, err)
	}
	*c = wireCode(n.String())
	return nil
}

// wireDecimal accepts numbers, numeric strings, null and "". The last two
// leave Valid false.
type wireDecimal struct {
	decimal.NullDecimal
}

func (d *wireDecimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	d.Valid = false
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("number %s: %w", data, err)
	}
	d.Decimal = v
	d.Valid = true
	return nil
}

// wireInt is a millisecond or second timestamp sent as number or string.
type wireInt struct {
	Value int64
	Valid bool
}

func (i *wireInt) UnmarshalJSON(data []byte) error {
	var d wireDecimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	i.Valid = d.Valid
	i.Value = 0
	if d.Valid {
		i.Value = d.Decimal.IntPart()
	}
	return nil
}

type wireOrder struct {
	OrderID      string      `json:"orderID"`
	ClOrdID      string      `json:"clOrdID"`
	Symbol       string      `json:"symbol"`
	OrderStatus  wireCode    `json:"orderStatus"`
	OrderType    wireCode    `json:"orderType"`
	Side         wireCode    `json:"side"`
	Price        wireDecimal `json:"price"`
	AvgPrice     wireDecimal `json:"avgPrice"`
	OrderQty     wireDecimal `json:"orderQty"`
	CumQty       wireDecimal `json:"cumQty"`
	LeavesQty    wireDecimal `json:"leavesQty"`
	Commission   wireDecimal `json:"commission"`
	Quote        string      `json:"quote"`
	CreateTime   *string     `json:"createTime"`
	TransactTime *string     `json:"transactTime"`
	RejectReason *string     `json:"rejectReason"`
}

type wireMyTrade struct {
	ID         string      `json:"id"`
	OrderID    string      `json:"orderID"`
	Symbol     string      `json:"symbol"`
	OrderType  wireCode    `json:"orderType"`
	Side       wireCode    `json:"side"`
	Price      wireDecimal `json:"price"`
	FilledQty  wireDecimal `json:"filledQty"`
	Commission wireDecimal `json:"commission"`
	CreateTime *string     `json:"createTime"`
}

type wirePublicTrade struct {
	TID   wireCode    `json:"tid"`
	Price wireDecimal `json:"p"`
	Qty   wireDecimal `json:"q"`
	Time  wireInt     `json:"t"`
}

type wireTrades struct {
	Event  string            `json:"e"`
	Trades []json.RawMessage `json:"trades"`
}

type wireTicker struct {
	Symbol string      `json:"s"`
	Open   wireDecimal `json:"o"`
	High   wireDecimal `json:"h"`
	Low    wireDecimal `json:"l"`
	Close  wireDecimal `json:"c"`
	Volume wireDecimal `json:"v"`
}

type wireTickers struct {
	Event   string            `json:"e"`
	Time    int64             `json:"t"`
	Tickers []json.RawMessage `json:"tickers"`
}

type wireOrderBook struct {
	Event string          `json:"e"`
	Time  wireInt         `json:"t"`
	Bids  [][]wireDecimal `json:"bids"`
	Asks  [][]wireDecimal `json:"asks"`
}

type wireBalance struct {
	PurseType   string      `json:"purseType"`
	Currency    string      `json:"currency"`
	Available   wireDecimal `json:"available"`
	Unavailable wireDecimal `json:"unavailable"`
}

type wireInstrument struct {
	Symbol      string      `json:"symbol"`
	Base        string      `json:"base"`
	Quote       string      `json:"quote"`
	Code        *string     `json:"code"`
	Status      string      `json:"status"`
	TakerFee    wireDecimal `json:"takerFee"`
	MakerFee    wireDecimal `json:"makerFee"`
	MinQuantity wireDecimal `json:"minQuantity"`
	MaxQuantity wireDecimal `json:"maxQuantity"`
	MinPrice    wireDecimal `json:"minPrice"`
	MaxPrice    wireDecimal `json:"maxPrice"`
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
