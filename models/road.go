package models

type Road struct {
	RoadID string  `json:"road_id"`
	Label  string  `json:"label"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

// KnownRoads are the Bangalore demo pins. Label doubles as the location id
// sent to /predict.
var KnownRoads = []Road{
	{RoadID: "silk-board-junction", Label: "Silk Board Junction", Lat: 12.9177, Lng: 77.6230},
	{RoadID: "hebbal-flyover", Label: "Hebbal Flyover", Lat: 13.0458, Lng: 77.5917},
	{RoadID: "kr-puram", Label: "KR Puram", Lat: 13.0075, Lng: 77.6950},
	{RoadID: "marathahalli", Label: "Marathahalli", Lat: 12.9592, Lng: 77.6974},
	{RoadID: "electronic-city", Label: "Electronic City", Lat: 12.8452, Lng: 77.6602},
	{RoadID: "m-g-road", Label: "M G Road", Lat: 12.9758, Lng: 77.6067},
}

// MapCenter is where the city map opens.
var MapCenter = struct {
	Lat, Lng float64
	Zoom     int
}{Lat: 12.9716, Lng: 77.5946, Zoom: 11}
