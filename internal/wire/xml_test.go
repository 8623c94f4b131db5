package wire

import (
	"errors"
	"testing"

	"github.com/veridie/veridie/internal/dice"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	s := NewXMLSerializer()
	encoded, err := s.Serialize(m)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	decoded, err := s.Deserialize(encoded)
	if err != nil {
		t.Fatalf("deserialize %q: %v", encoded, err)
	}
	return decoded
}

func TestHelloRoundTrip(t *testing.T) {
	got, ok := roundTrip(t, Hello{Mac: "5c:b9:01:f8:b6:40"}).(Hello)
	if !ok || got.Mac != "5c:b9:01:f8:b6:40" {
		t.Fatalf("got %+v", got)
	}
}

func TestOfferRoundTrip(t *testing.T) {
	got, ok := roundTrip(t, Offer{Mac: "5c:b9:01:f8:b6:41", Round: 6}).(Offer)
	if !ok || got.Mac != "5c:b9:01:f8:b6:41" || got.Round != 6 {
		t.Fatalf("got %+v", got)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	threshold := uint32(3)
	in := Request{Cast: dice.NewCast(dice.D6, 4), Threshold: &threshold}
	got, ok := roundTrip(t, in).(Request)
	if !ok {
		t.Fatalf("wrong type")
	}
	if got.Cast.Kind() != dice.D6 || got.Cast.Size() != 4 {
		t.Fatalf("cast = %v size %d", got.Cast.Kind(), got.Cast.Size())
	}
	if got.Threshold == nil || *got.Threshold != 3 {
		t.Fatalf("threshold = %v", got.Threshold)
	}
	for i, v := range got.Cast.Values() {
		if v != 0 {
			t.Fatalf("slot %d = %d, want 0", i, v)
		}
	}
}

func TestRequestWithoutThresholdRoundTrip(t *testing.T) {
	got := roundTrip(t, Request{Cast: dice.NewCast(dice.D100, 2)}).(Request)
	if got.Threshold != nil {
		t.Fatalf("threshold = %v, want nil", got.Threshold)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	cast := dice.NewCast(dice.D6, 4)
	if err := cast.Fill([]uint32{3, 3, 3, 3}); err != nil {
		t.Fatalf("fill: %v", err)
	}
	count := 4
	got := roundTrip(t, Response{Cast: cast, SuccessCount: &count}).(Response)
	if got.SuccessCount == nil || *got.SuccessCount != 4 {
		t.Fatalf("success count = %v", got.SuccessCount)
	}
	for i, v := range got.Cast.Values() {
		if v != 3 {
			t.Fatalf("slot %d = %d", i, v)
		}
	}
}

func TestResponseZeroSuccessCountSurvives(t *testing.T) {
	cast := dice.NewCast(dice.D4, 1)
	if err := cast.Fill([]uint32{1}); err != nil {
		t.Fatalf("fill: %v", err)
	}
	zero := 0
	got := roundTrip(t, Response{Cast: cast, SuccessCount: &zero}).(Response)
	if got.SuccessCount == nil || *got.SuccessCount != 0 {
		t.Fatalf("success count = %v, want 0", got.SuccessCount)
	}
}

func TestResponseWithoutSuccessCountRoundTrip(t *testing.T) {
	cast := dice.NewCast(dice.D20, 2)
	if err := cast.Fill([]uint32{7, 20}); err != nil {
		t.Fatalf("fill: %v", err)
	}
	got := roundTrip(t, Response{Cast: cast}).(Response)
	if got.SuccessCount != nil {
		t.Fatalf("success count = %v, want nil", got.SuccessCount)
	}
}

func TestDeserializeReferenceForms(t *testing.T) {
	s := NewXMLSerializer()

	m, err := s.Deserialize(`<Hello><Mac>aa:bb</Mac></Hello>`)
	if err != nil {
		t.Fatalf("hello: %v", err)
	}
	if hello := m.(Hello); hello.Mac != "aa:bb" {
		t.Fatalf("hello = %+v", hello)
	}

	m, err = s.Deserialize(`<Offer round="5"><Mac>aa:cc</Mac></Offer>`)
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	if offer := m.(Offer); offer.Round != 5 || offer.Mac != "aa:cc" {
		t.Fatalf("offer = %+v", offer)
	}

	m, err = s.Deserialize(`<Request type="D6" size="4" successFrom="3" />`)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req := m.(Request)
	if req.Cast.Kind() != dice.D6 || req.Cast.Size() != 4 || req.Threshold == nil || *req.Threshold != 3 {
		t.Fatalf("request = %+v", req)
	}

	m, err = s.Deserialize(`<Response type="D4" size="2" successCount="1"><Val>1</Val><Val>4</Val></Response>`)
	if err != nil {
		t.Fatalf("response: %v", err)
	}
	resp := m.(Response)
	if resp.Cast.Kind() != dice.D4 || resp.SuccessCount == nil || *resp.SuccessCount != 1 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	s := NewXMLSerializer()
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"unknown root", `<Ping/>`, ErrUnknownMessage},
		{"not xml", `hello there`, ErrMalformedMessage},
		{"bad kind", `<Request type="D7" size="1"/>`, ErrMalformedMessage},
		{"value count mismatch", `<Response type="D6" size="3"><Val>1</Val></Response>`, ErrMalformedMessage},
		{"value out of range", `<Response type="D6" size="1"><Val>9</Val></Response>`, ErrMalformedMessage},
	}
	for _, tc := range cases {
		if _, err := s.Deserialize(tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}
