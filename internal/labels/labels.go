// Package labels renders printable QR label sheets for freezer items.
package labels

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/erazemk/freezer/internal/model"
	"github.com/erazemk/freezer/web"
)

// QRSize is the pixel size of generated QR images.
const QRSize = 256

// Options select the optional lines printed under each code.
type Options struct {
	ShowName       bool `json:"show_name"`
	ShowExpiration bool `json:"show_expiration"`
	ShowCategory   bool `json:"show_category"`
	ShowWeight     bool `json:"show_weight"`
}

// DefaultOptions prints the name and expiration date.
var DefaultOptions = Options{ShowName: true, ShowExpiration: true}

type label struct {
	Code     string
	QR       template.URL
	Name     string
	Category string
	Weight   string
	Expires  string
}

// Sheet renders label sheets from the embedded template.
type Sheet struct {
	tmpl *template.Template
}

// NewSheet parses the label template.
func NewSheet() (*Sheet, error) {
	tmpl, err := template.ParseFS(web.TemplatesFS(), "labels.html")
	if err != nil {
		return nil, fmt.Errorf("parsing label template: %w", err)
	}
	return &Sheet{tmpl: tmpl}, nil
}

// Render writes an HTML page with one label per item.
func (s *Sheet) Render(w io.Writer, items []model.Item, opts Options) error {
	data := struct {
		Labels  []label
		Options Options
	}{Options: opts}

	for _, it := range items {
		png, err := QR(it.Code)
		if err != nil {
			return err
		}
		l := label{
			Code:     it.Code,
			QR:       template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)),
			Name:     it.Name,
			Category: it.CategoryName,
			Expires:  it.ExpirationDate,
		}
		if it.Weight != nil {
			l.Weight = strconv.FormatFloat(*it.Weight, 'f', -1, 64) + " " + it.WeightUnit
		}
		data.Labels = append(data.Labels, l)
	}

	if err := s.tmpl.ExecuteTemplate(w, "labels", data); err != nil {
		return fmt.Errorf("rendering labels: %w", err)
	}
	return nil
}

// QR returns a PNG QR code encoding the item's scan payload.
func QR(code string) ([]byte, error) {
	png, err := qrcode.Encode(model.QRPayload(code), qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("encoding QR code: %w", err)
	}
	return png, nil
}
