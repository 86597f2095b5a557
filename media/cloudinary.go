// Package media builds Cloudinary delivery URLs for case photos and signs
// browser uploads so the API never handles image bytes itself.
package media

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"

	"github.com/Rhejna/missing-person-app/config"
)

// ErrNotConfigured is returned when no Cloudinary credentials were given
var ErrNotConfigured = errors.New("cloudinary is not configured")

// UploadFolder holds every case photo
const UploadFolder = "missing-persons/cases"

const photoTransformation = "c_fill,g_face,h_600,w_600/q_auto/f_auto"

// Signature is what the browser needs for a signed upload
type Signature struct {
	Timestamp    string `json:"timestamp"`
	Signature    string `json:"signature"`
	APIKey       string `json:"apiKey"`
	CloudName    string `json:"cloudName"`
	UploadPreset string `json:"uploadPreset,omitempty"`
	Folder       string `json:"folder"`
}

// Cloudinary resolves photo references and signs uploads
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	preset string
	now    func() time.Time
}

// New returns a Cloudinary from CLOUDINARY_URL, or from the individual
// credentials when the URL is unset
func New(conf *config.Config) (*Cloudinary, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	switch {
	case conf.CloudinaryURL != "":
		cld, err = cloudinary.NewFromURL(conf.CloudinaryURL)
	case conf.CloudinaryCloudName != "" && conf.CloudinaryAPISecret != "":
		cld, err = cloudinary.NewFromParams(conf.CloudinaryCloudName, conf.CloudinaryAPIKey, conf.CloudinaryAPISecret)
	default:
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, err
	}
	cld.Config.URL.Secure = true
	return &Cloudinary{cld: cld, preset: conf.CloudinaryUploadPreset, now: time.Now}, nil
}

// PhotoURL turns a stored reference into a delivery URL. Absolute URLs are
// returned as they are.
func (c *Cloudinary) PhotoURL(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	img, err := c.cld.Image(ref)
	if err != nil {
		return ""
	}
	img.Transformation = photoTransformation
	out, err := img.String()
	if err != nil {
		return ""
	}
	return out
}

// Sign returns the parameters for a signed upload into UploadFolder
func (c *Cloudinary) Sign() (Signature, error) {
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", UploadFolder)
	if c.preset != "" {
		params.Set("upload_preset", c.preset)
	}

	signature, err := api.SignParameters(params, c.cld.Config.Cloud.APISecret)
	if err != nil {
		return Signature{}, err
	}
	return Signature{
		Timestamp:    timestamp,
		Signature:    signature,
		APIKey:       c.cld.Config.Cloud.APIKey,
		CloudName:    c.cld.Config.Cloud.CloudName,
		UploadPreset: c.preset,
		Folder:       UploadFolder,
	}, nil
}
