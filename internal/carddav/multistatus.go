package carddav

import (
	"encoding/xml"
	"strings"

	"github.com/AkaBlas/akadressen-utils/pkg/errors"
)

// propfindBody asks the server only for what the sync needs: the etag that
// guards uploads and the content type to filter out collection resources.
const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:getetag/>
    <d:getcontenttype/>
  </d:prop>
</d:propfind>`

type multistatus struct {
	XMLName   xml.Name      `xml:"DAV: multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href      string     `xml:"href"`
	Propstats []propstat `xml:"propstat"`
}

type propstat struct {
	Status string `xml:"status"`
	Prop   prop   `xml:"prop"`
}

type prop struct {
	Etag        string `xml:"getetag"`
	ContentType string `xml:"getcontenttype"`
}

// resource is one address object of the collection, identified by its server
// path together with the revision marker current at listing time.
type resource struct {
	Href string
	Etag string
}

// parseMultistatus extracts the vCard resources from a PROPFIND response.
// Collection members that are not address objects (the collection itself,
// sub-collections) are skipped.
func parseMultistatus(body []byte) ([]resource, error) {
	var ms multistatus
	if err := xml.Unmarshal(body, &ms); err != nil {
		return nil, errors.WrapParse("xml", "multistatus", err)
	}

	var out []resource
	for _, r := range ms.Responses {
		res := resource{Href: r.Href}
		ok := false
		for _, ps := range r.Propstats {
			if !strings.Contains(ps.Status, "200") {
				continue
			}
			if ps.Prop.Etag != "" {
				res.Etag = ps.Prop.Etag
			}
			if isVCardResource(r.Href, ps.Prop.ContentType) {
				ok = true
			}
		}
		if ok {
			out = append(out, res)
		}
	}
	return out, nil
}

func isVCardResource(href, contentType string) bool {
	if strings.Contains(contentType, "text/vcard") || strings.Contains(contentType, "text/x-vcard") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(href), ".vcf")
}
