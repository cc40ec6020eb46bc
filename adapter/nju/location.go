package nju

import (
	"strings"

	"campuscal/schedule"
)

// Known Xianlin campus buildings. Room names embed the building, so a
// substring match is enough. Coordinates were picked off Apple Maps.
var buildingGeo = []struct {
	substr string
	geo    schedule.GeoLocation
}{
	{"仙Ⅰ", schedule.GeoLocation{Latitude: 32.111571, Longitude: 118.959550}},
	{"仙Ⅱ", schedule.GeoLocation{Latitude: 32.112285, Longitude: 118.959041}},
	{"方肇周", schedule.GeoLocation{Latitude: 32.112693, Longitude: 118.956220}},
	{"基础实验楼乙", schedule.GeoLocation{Latitude: 32.110261, Longitude: 118.957089}},
	{"基础实验楼丙", schedule.GeoLocation{Latitude: 32.110409, Longitude: 118.958241}},
	{"基础实验楼甲", schedule.GeoLocation{Latitude: 32.110065, Longitude: 118.955857}},
	{"逸", schedule.GeoLocation{Latitude: 32.110602, Longitude: 118.959645}},
	{"化学楼", schedule.GeoLocation{Latitude: 32.118459, Longitude: 118.952461}},
	{"环科楼", schedule.GeoLocation{Latitude: 32.117099, Longitude: 118.953059}},
	{"大气楼", schedule.GeoLocation{Latitude: 32.117680, Longitude: 118.955216}},
	{"地海楼", schedule.GeoLocation{Latitude: 32.112540, Longitude: 118.961573}},
	{"地科楼", schedule.GeoLocation{Latitude: 32.111781, Longitude: 118.961577}},
	{"电子楼", schedule.GeoLocation{Latitude: 32.110843, Longitude: 118.961881}},
	{"计科楼", schedule.GeoLocation{Latitude: 32.111006, Longitude: 118.963210}},
	{"行政楼", schedule.GeoLocation{Latitude: 32.112017, Longitude: 118.963088}},
	{"天文楼", schedule.GeoLocation{Latitude: 32.125405, Longitude: 118.959940}},
	{"众创空间", schedule.GeoLocation{Latitude: 32.122708, Longitude: 118.952153}},
	{"社会学院", schedule.GeoLocation{Latitude: 32.118196, Longitude: 118.959968}},
	{"历史学院", schedule.GeoLocation{Latitude: 32.118890, Longitude: 118.959353}},
	{"政管学院", schedule.GeoLocation{Latitude: 32.117351, Longitude: 118.959900}},
	{"生科楼", schedule.GeoLocation{Latitude: 32.119247, Longitude: 118.954984}},
	{"医学楼", schedule.GeoLocation{Latitude: 32.119974, Longitude: 118.954473}},
	{"现工院楼", schedule.GeoLocation{Latitude: 32.121247, Longitude: 118.955225}},
	{"四组团", schedule.GeoLocation{Latitude: 32.121168, Longitude: 118.951608}},
}

// lookupGeo resolves a classroom name to coordinates. Unknown buildings
// return nil and the event is simply published without a geo hint.
func lookupGeo(location string) *schedule.GeoLocation {
	for _, b := range buildingGeo {
		if strings.Contains(location, b.substr) {
			geo := b.geo
			return &geo
		}
	}
	return nil
}
