package binance

import (
	"encoding/json"
	"testing"
)

func rawRow(t *testing.T, body string) []json.RawMessage {
	t.Helper()
	var row []json.RawMessage
	if err := json.Unmarshal([]byte(body), &row); err != nil {
		t.Fatal(err)
	}
	return row
}

func TestParseKlineRow(t *testing.T) {
	row := rawRow(t, `[1700000000000,"100.10","101.00","99.50","100.75","1234.5",1700000299999,"ignored",42,"x","y","z"]`)
	c, err := parseKlineRow(row)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.OpenTime != 1700000000000 || c.CloseTime != 1700000299999 {
		t.Fatalf("times: %+v", c)
	}
	if c.Open != 100.10 || c.High != 101.00 || c.Low != 99.50 || c.Close != 100.75 || c.Volume != 1234.5 {
		t.Fatalf("ohlcv: %+v", c)
	}
}

func TestParseKlineRowRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"short row", `[1700000000000,"100","101"]`},
		{"numeric price field", `[1700000000000,100,"101","99","100","1",1700000299999]`},
		{"unparseable price", `[1700000000000,"abc","101","99","100","1",1700000299999]`},
		{"string open time", `["t","100","101","99","100","1",1700000299999]`},
	}
	for _, tc := range cases {
		if _, err := parseKlineRow(rawRow(t, tc.body)); err == nil {
			t.Errorf("%s: accepted", tc.name)
		}
	}
}
