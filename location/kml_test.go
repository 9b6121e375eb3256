// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterpoint/waterpoint/spatial"
)

const myMapsExport = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <name>Water points</name>
    <Folder>
      <name>Verified Form</name>
      <Placemark>
        <name>Bishan Park fountain</name>
        <description><![CDATA[Level: ground<br>Temperature: Hot, Cold<br>Operator: NParks]]></description>
        <Point>
          <coordinates>
            103.8198,1.3521,0
          </coordinates>
        </Point>
      </Placemark>
      <Placemark>
        <name>Park boundary</name>
        <LineString><coordinates>103.8,1.3,0 103.9,1.4,0</coordinates></LineString>
      </Placemark>
    </Folder>
    <Folder>
      <name>Ticketed Reserve</name>
      <Placemark>
        <name>Stadium cooler</name>
        <description>Operator: SportSG</description>
        <ExtendedData>
          <Data name="Level"><value>B3</value></Data>
          <Data name="Operator"><value>Sport Singapore</value></Data>
          <Data name="temp"><value>Room temperature</value></Data>
        </ExtendedData>
        <Point><coordinates>103.8740,1.3040</coordinates></Point>
      </Placemark>
    </Folder>
    <Placemark>
      <name>Loose pin</name>
      <Point><coordinates>103.85,1.29,0</coordinates></Point>
    </Placemark>
  </Document>
</kml>`

func TestParseKML(t *testing.T) {
	locs, err := ParseKML(strings.NewReader(myMapsExport))
	require.NoError(t, err)

	want := []*Location{
		{
			Point:    spatial.Point{Lat: 1.29, Lng: 103.85},
			Name:     "Loose pin",
			Category: UserInput,
			Level:    DefaultLevel,
		},
		{
			Point:        spatial.Point{Lat: 1.3521, Lng: 103.8198},
			Name:         "Bishan Park fountain",
			Category:     VerifiedForm,
			Level:        "Ground",
			Temperatures: Temperatures{Cold, Hot},
			Operator:     "NParks",
		},
		{
			Point:        spatial.Point{Lat: 1.3040, Lng: 103.8740},
			Name:         "Stadium cooler",
			Category:     TicketedReserve,
			Level:        "B3",
			Temperatures: Temperatures{RoomTemperature},
			Operator:     "Sport Singapore",
		},
	}

	if diff := cmp.Diff(want, locs); diff != "" {
		t.Errorf("ParseKML() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseKMLLatin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<kml><Document><Placemark><name>Caf\xe9</name>" +
		"<Point><coordinates>103.8,1.3</coordinates></Point></Placemark></Document></kml>"

	locs, err := ParseKML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "Café", locs[0].Name)
}

func TestParseKMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not xml", doc: "{}"},
		{name: "bad coordinates", doc: `<kml><Document><Placemark><name>x</name><Point><coordinates>abc,1</coordinates></Point></Placemark></Document></kml>`},
		{name: "out of range", doc: `<kml><Document><Placemark><name>x</name><Point><coordinates>1,95</coordinates></Point></Placemark></Document></kml>`},
		{name: "single value", doc: `<kml><Document><Placemark><name>x</name><Point><coordinates>1</coordinates></Point></Placemark></Document></kml>`},
		{name: "empty", doc: `<kml><Document><Placemark><name>x</name><Point><coordinates> </coordinates></Point></Placemark></Document></kml>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseKML(strings.NewReader(tt.doc))
			require.Error(t, err)

			if tt.name != "not xml" {
				assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
				assert.Contains(t, err.Error(), `placemark "x"`)
			}
		})
	}
}
