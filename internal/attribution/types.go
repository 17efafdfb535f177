package attribution

import (
	"fmt"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
)

// pictureItem is the STAC item returned by Panoramax for one picture.
type pictureItem struct {
	ID         string `json:"id"`
	Properties struct {
		Producer string `json:"geovisio:producer"`
		License  string `json:"geovisio:license"`
	} `json:"properties"`
	Providers []struct {
		Name  string   `json:"name"`
		Roles []string `json:"roles"`
	} `json:"providers"`
	Assets map[string]struct {
		Href string `json:"href"`
	} `json:"assets"`
}

// assetPreference lists the picture sizes to download, smallest sensible first.
var assetPreference = []string{"sd", "hd", "thumb"}

func (p pictureItem) attribution() (domain.Attribution, error) {
	author := p.Properties.Producer
	if author == "" {
		for _, provider := range p.Providers {
			for _, role := range provider.Roles {
				if role == "producer" {
					author = provider.Name
				}
			}
		}
	}

	var href string

	for _, size := range assetPreference {
		if asset, ok := p.Assets[size]; ok && asset.Href != "" {
			href = asset.Href
			break
		}
	}

	if href == "" {
		return domain.Attribution{}, fmt.Errorf("%w: picture %s has no downloadable asset", coreerrors.ErrNotFound, p.ID)
	}

	return domain.Attribution{Author: author, License: p.Properties.License, DownloadURL: href}, nil
}

type imgurResponse struct {
	Data struct {
		Description string `json:"description"`
		Link        string `json:"link"`
	} `json:"data"`
}
