package wire

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/veridie/veridie/internal/dice"
)

// ErrUnknownMessage indicates a root element outside the protocol set.
var ErrUnknownMessage = errors.New("unknown message type")

// ErrMalformedMessage indicates a structurally invalid message.
var ErrMalformedMessage = errors.New("malformed message")

type xmlHello struct {
	XMLName xml.Name `xml:"Hello"`
	Mac     string   `xml:"Mac"`
}

type xmlOffer struct {
	XMLName xml.Name `xml:"Offer"`
	Round   uint32   `xml:"round,attr"`
	Mac     string   `xml:"Mac"`
}

type xmlRequest struct {
	XMLName     xml.Name `xml:"Request"`
	Type        string   `xml:"type,attr"`
	Size        int      `xml:"size,attr"`
	SuccessFrom *uint32  `xml:"successFrom,attr,omitempty"`
}

type xmlResponse struct {
	XMLName      xml.Name `xml:"Response"`
	Type         string   `xml:"type,attr"`
	Size         int      `xml:"size,attr"`
	SuccessCount *int     `xml:"successCount,attr,omitempty"`
	Vals         []uint32 `xml:"Val"`
}

type xmlSerializer struct{}

// NewXMLSerializer returns the reference XML serializer.
func NewXMLSerializer() Serializer {
	return xmlSerializer{}
}

// Serialize implements Serializer.
func (xmlSerializer) Serialize(m Message) (string, error) {
	var doc any
	switch v := m.(type) {
	case Hello:
		doc = xmlHello{Mac: v.Mac}
	case Offer:
		doc = xmlOffer{Round: v.Round, Mac: v.Mac}
	case Request:
		doc = xmlRequest{
			Type:        v.Cast.Kind().String(),
			Size:        v.Cast.Size(),
			SuccessFrom: v.Threshold,
		}
	case Response:
		doc = xmlResponse{
			Type:         v.Cast.Kind().String(),
			Size:         v.Cast.Size(),
			SuccessCount: v.SuccessCount,
			Vals:         v.Cast.Values(),
		}
	default:
		return "", fmt.Errorf("%w: %T", ErrUnknownMessage, m)
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("serialize message: %w", err)
	}
	return string(out), nil
}

// Deserialize implements Serializer.
func (xmlSerializer) Deserialize(s string) (Message, error) {
	dec := xml.NewDecoder(strings.NewReader(s))
	var start xml.StartElement
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			start = se
			break
		}
	}

	switch start.Name.Local {
	case "Hello":
		var v xmlHello
		if err := dec.DecodeElement(&v, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return Hello{Mac: v.Mac}, nil
	case "Offer":
		var v xmlOffer
		if err := dec.DecodeElement(&v, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return Offer{Mac: v.Mac, Round: v.Round}, nil
	case "Request":
		var v xmlRequest
		if err := dec.DecodeElement(&v, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		kind, err := dice.ParseKind(v.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if v.Size < 0 {
			return nil, fmt.Errorf("%w: negative size", ErrMalformedMessage)
		}
		return Request{Cast: dice.NewCast(kind, v.Size), Threshold: v.SuccessFrom}, nil
	case "Response":
		var v xmlResponse
		if err := dec.DecodeElement(&v, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		kind, err := dice.ParseKind(v.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if v.Size < 0 || len(v.Vals) != v.Size {
			return nil, fmt.Errorf("%w: size %d with %d values", ErrMalformedMessage, v.Size, len(v.Vals))
		}
		cast := dice.NewCast(kind, v.Size)
		if err := cast.Fill(v.Vals); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return Response{Cast: cast, SuccessCount: v.SuccessCount}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, start.Name.Local)
}
