package touhoudb

import "tohoinfo/internal/core"

type searchResponse struct {
	Items      []songPayload `json:"items"`
	TotalCount int           `json:"totalCount"`
}

type songPayload struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	DefaultName       string            `json:"defaultName"`
	SongType          string            `json:"songType"`
	OriginalVersionID int64             `json:"originalVersionId"`
	Names             []core.SongName   `json:"names"`
	Artists           []artistEntryData `json:"artists"`
	Albums            []albumData       `json:"albums"`
	PVs               []pvData          `json:"pvs"`
	Tags              []core.SongTag    `json:"tags"`
}

type artistEntryData struct {
	Categories string      `json:"categories"`
	Name       string      `json:"name"`
	Artist     *artistData `json:"artist"`
}

type artistData struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	ArtistType      string `json:"artistType"`
	AdditionalNames string `json:"additionalNames"`
}

type albumData struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	DefaultName     string `json:"defaultName"`
	AdditionalNames string `json:"additionalNames"`
}

type pvData struct {
	Service  string `json:"service"`
	URL      string `json:"url"`
	PVType   string `json:"pvType"`
	Disabled bool   `json:"disabled"`
}

type pictureEntry struct {
	ID          int64        `json:"id"`
	MainPicture *pictureData `json:"mainPicture"`
}

type pictureData struct {
	URLOriginal   string `json:"urlOriginal"`
	URLThumb      string `json:"urlThumb"`
	URLSmallThumb string `json:"urlSmallThumb"`
	URLTinyThumb  string `json:"urlTinyThumb"`
}

func (p songPayload) toRecord() core.SongRecord {
	record := core.SongRecord{
		ID:                p.ID,
		Name:              firstNonEmpty(p.Name, p.DefaultName),
		SongType:          core.SongType(p.SongType),
		OriginalVersionID: p.OriginalVersionID,
		Names:             p.Names,
		Tags:              p.Tags,
	}

	for _, entry := range p.Artists {
		converted := core.ArtistEntry{Categories: entry.Categories, Name: entry.Name}
		if entry.Artist != nil {
			converted.Artist = &core.Artist{
				ID:              entry.Artist.ID,
				Name:            entry.Artist.Name,
				ArtistType:      entry.Artist.ArtistType,
				AdditionalNames: entry.Artist.AdditionalNames,
			}
		}
		record.Artists = append(record.Artists, converted)
	}

	for _, album := range p.Albums {
		record.Albums = append(record.Albums, core.Album{
			ID:              album.ID,
			Name:            firstNonEmpty(album.Name, album.DefaultName),
			AdditionalNames: album.AdditionalNames,
		})
	}

	for _, pv := range p.PVs {
		if pv.Disabled {
			continue
		}
		record.PVs = append(record.PVs, core.PV{Service: pv.Service, URL: pv.URL})
	}

	return record
}

func (p pictureData) toImages() *core.Images {
	images := &core.Images{
		IconURL:  firstNonEmpty(p.URLSmallThumb, p.URLTinyThumb, p.URLThumb),
		PopupURL: firstNonEmpty(p.URLThumb, p.URLOriginal),
	}
	if images.IconURL == "" && images.PopupURL == "" {
		return nil
	}
	return images
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
