package band

import "github.com/paulmach/orb"

// DefaultCoordinate is the last-resort coordinate (Beijing) for bands whose
// city and province cannot be resolved.
var DefaultCoordinate = orb.Point{116.407, 39.904}

// provinceCenters maps normalized province names to their capital city.
var provinceCenters = map[string]orb.Point{
	"北京":  {116.405285, 39.904989},
	"天津":  {117.190182, 39.125596},
	"河北":  {114.502461, 38.045474},
	"山西":  {112.549248, 37.857014},
	"内蒙古": {111.670801, 40.818311},
	"辽宁":  {123.429096, 41.796767},
	"吉林":  {125.3245, 43.886841},
	"黑龙江": {126.642464, 45.756967},
	"上海":  {121.472644, 31.231706},
	"江苏":  {118.767413, 32.041544},
	"浙江":  {120.153576, 30.287459},
	"安徽":  {117.283042, 31.86119},
	"福建":  {119.306239, 26.075302},
	"江西":  {115.892151, 28.676493},
	"山东":  {117.000923, 36.675807},
	"河南":  {113.665412, 34.757975},
	"湖北":  {114.298572, 30.584355},
	"湖南":  {112.982279, 28.19409},
	"广东":  {113.280637, 23.125178},
	"广西":  {108.320004, 22.82402},
	"海南":  {110.33119, 20.031971},
	"重庆":  {106.504962, 29.533155},
	"四川":  {104.065735, 30.659462},
	"贵州":  {106.713478, 26.578343},
	"云南":  {102.712251, 25.040609},
	"西藏":  {91.132212, 29.660361},
	"陕西":  {108.948024, 34.263161},
	"甘肃":  {103.823557, 36.058039},
	"青海":  {101.778916, 36.623178},
	"宁夏":  {106.278179, 38.46637},
	"新疆":  {87.617733, 43.792818},
	"台湾":  {121.509062, 25.044332},
	"香港":  {114.173355, 22.320048},
	"澳门":  {113.54909, 22.198951},
}

// cityCenters covers the cities that appear in the band catalogue.
var cityCenters = map[string]orb.Point{
	"北京":   {116.405285, 39.904989},
	"天津":   {117.190182, 39.125596},
	"上海":   {121.472644, 31.231706},
	"重庆":   {106.504962, 29.533155},
	"石家庄":  {114.502461, 38.045474},
	"太原":   {112.549248, 37.857014},
	"呼和浩特": {111.670801, 40.818311},
	"沈阳":   {123.429096, 41.796767},
	"大连":   {121.618622, 38.91459},
	"长春":   {125.3245, 43.886841},
	"哈尔滨":  {126.642464, 45.756967},
	"南京":   {118.767413, 32.041544},
	"苏州":   {120.619585, 31.299379},
	"无锡":   {120.301663, 31.574729},
	"杭州":   {120.153576, 30.287459},
	"宁波":   {121.549792, 29.868388},
	"温州":   {120.672111, 28.000575},
	"合肥":   {117.283042, 31.86119},
	"福州":   {119.306239, 26.075302},
	"厦门":   {118.11022, 24.490474},
	"泉州":   {118.589421, 24.908853},
	"南昌":   {115.892151, 28.676493},
	"济南":   {117.000923, 36.675807},
	"青岛":   {120.355173, 36.082982},
	"烟台":   {121.391382, 37.539297},
	"郑州":   {113.665412, 34.757975},
	"洛阳":   {112.434468, 34.663041},
	"开封":   {114.341447, 34.797049},
	"武汉":   {114.298572, 30.584355},
	"长沙":   {112.982279, 28.19409},
	"广州":   {113.280637, 23.125178},
	"深圳":   {114.085947, 22.547},
	"佛山":   {113.122717, 23.028762},
	"东莞":   {113.746262, 23.046237},
	"珠海":   {113.553986, 22.224979},
	"南宁":   {108.320004, 22.82402},
	"桂林":   {110.299121, 25.274215},
	"海口":   {110.33119, 20.031971},
	"成都":   {104.065735, 30.659462},
	"绵阳":   {104.741722, 31.46402},
	"贵阳":   {106.713478, 26.578343},
	"昆明":   {102.712251, 25.040609},
	"大理":   {100.225668, 25.589449},
	"丽江":   {100.233026, 26.872108},
	"拉萨":   {91.132212, 29.660361},
	"西安":   {108.948024, 34.263161},
	"兰州":   {103.823557, 36.058039},
	"西宁":   {101.778916, 36.623178},
	"银川":   {106.278179, 38.46637},
	"乌鲁木齐": {87.617733, 43.792818},
	"台北":   {121.509062, 25.044332},
	"香港":   {114.173355, 22.320048},
	"澳门":   {113.54909, 22.198951},
}

// CityCenter returns the built-in coordinate for a city.
func CityCenter(city string) (orb.Point, bool) {
	p, ok := cityCenters[NormalizeCity(city)]
	return p, ok
}

// ProvinceCenter returns the built-in capital coordinate for a province.
func ProvinceCenter(province string) (orb.Point, bool) {
	p, ok := provinceCenters[NormalizeProvince(province)]
	return p, ok
}
