package search

import (
	"encoding/json"
	"strconv"
)

// Query is a single search intent. SequenceID increases with every issued
// request and identifies the authoritative one.
type Query struct {
	Text       string
	SequenceID uint64
}

// Result is one product returned by the search endpoint.
type Result struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url"`
	Image string `json:"image"`
	Name  string `json:"name"`
	Price Price  `json:"price"`
}

// Price is the display price of a result. The backend sends either a JSON
// string or a JSON number; both are kept verbatim.
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

// ProductID returns the product identifier of the result, if any.
func (r Result) ProductID() string {
	return r.ID
}

// UnmarshalJSON accepts numeric product IDs as well as strings.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var aux struct {
		plain
		ID json.RawMessage `json:"id,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Result(aux.plain)
	r.ID = ""
	if len(aux.ID) == 0 || string(aux.ID) == "null" {
		return nil
	}
	if aux.ID[0] == '"' {
		return json.Unmarshal(aux.ID, &r.ID)
	}
	var n json.Number
	if err := json.Unmarshal(aux.ID, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return err
	}
	r.ID = n.String()
	return nil
}
