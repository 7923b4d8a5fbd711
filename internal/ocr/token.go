package ocr

import "context"

// Point is one corner of a token's bounding polygon, in image pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Token is one recognised text run. Box corners are ordered top-left, top-right,
// bottom-right, bottom-left.
type Token struct {
	Text string   `json:"text"`
	Box  [4]Point `json:"box"`
}

// Left is the x of the top-left corner.
func (t Token) Left() int { return t.Box[0].X }

// Top is the y of the top-left corner.
func (t Token) Top() int { return t.Box[0].Y }

// Bottom is the y of the bottom-right corner.
func (t Token) Bottom() int { return t.Box[2].Y }

// CenterX is the midpoint of the top edge.
func (t Token) CenterX() float64 { return float64(t.Box[0].X+t.Box[1].X) / 2 }

// CenterY is the midpoint between the top-left and bottom-right corners.
func (t Token) CenterY() float64 { return float64(t.Box[0].Y+t.Box[2].Y) / 2 }

// Rect builds a token from an axis-aligned rectangle.
func Rect(text string, left, top, width, height int) Token {
	return Token{
		Text: text,
		Box: [4]Point{
			{X: left, Y: top},
			{X: left + width, Y: top},
			{X: left + width, Y: top + height},
			{X: left, Y: top + height},
		},
	}
}

// Recognizer turns image bytes into tokens. The first token of a successful result is a
// whole-page summary; row tokens follow.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]Token, error)
}
