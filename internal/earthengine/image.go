package earthengine

// mappingVar is the lambda argument name used for per-image mapping.
const mappingVar = "_MAPPING_VAR_0_0"

type Geometry struct{ v *Value }

type Filter struct{ v *Value }

type ImageCollection struct{ v *Value }

type Image struct{ v *Value }

// Rectangle is a planar rectangle from [minLon, minLat, maxLon, maxLat].
func Rectangle(coords []float64) Geometry {
	return Geometry{Invoke("GeometryConstructors.Rectangle", map[string]*Value{
		"coordinates": Constant(coords),
		"geodesic":    Constant(false),
	})}
}

func (g Geometry) Value() *Value { return g.v }

// DateRangeFilter keeps images whose acquisition time lies in [start, end).
func DateRangeFilter(start, end string) Filter {
	return Filter{Invoke("Filter.dateRangeContains", map[string]*Value{
		"leftValue": Invoke("DateRange", map[string]*Value{
			"start": Constant(start),
			"end":   Constant(end),
		}),
		"rightField": Constant("system:time_start"),
	})}
}

func BoundsFilter(g Geometry) Filter {
	return Filter{Invoke("Filter.intersects", map[string]*Value{
		"leftField":  Constant(".all"),
		"rightValue": g.v,
	})}
}

// LessThanFilter keeps images whose metadata property is strictly below value.
func LessThanFilter(property string, value float64) Filter {
	return Filter{Invoke("Filter.lessThan", map[string]*Value{
		"leftField":  Constant(property),
		"rightValue": Constant(value),
	})}
}

func (f Filter) Value() *Value { return f.v }

func LoadImageCollection(id string) ImageCollection {
	return ImageCollection{Invoke("ImageCollection.load", map[string]*Value{
		"id": Constant(id),
	})}
}

// Select keeps only the named bands of every image in the collection.
func (c ImageCollection) Select(bands ...string) ImageCollection {
	body := Invoke("Image.select", map[string]*Value{
		"input":         ArgumentRef(mappingVar),
		"bandSelectors": Constant(bands),
	})
	return ImageCollection{Invoke("Collection.map", map[string]*Value{
		"collection":    c.v,
		"baseAlgorithm": Function([]string{mappingVar}, body),
	})}
}

func (c ImageCollection) Filter(f Filter) ImageCollection {
	return ImageCollection{Invoke("Collection.filter", map[string]*Value{
		"collection": c.v,
		"filter":     f.v,
	})}
}

func (c ImageCollection) FilterDate(start, end string) ImageCollection {
	return c.Filter(DateRangeFilter(start, end))
}

func (c ImageCollection) FilterBounds(g Geometry) ImageCollection {
	return c.Filter(BoundsFilter(g))
}

// Size is the number of images, evaluated remotely.
func (c ImageCollection) Size() *Value {
	return Invoke("Collection.size", map[string]*Value{"collection": c.v})
}

// Median is the pixel-wise median composite.
func (c ImageCollection) Median() Image {
	return Image{Invoke("reduce.median", map[string]*Value{"collection": c.v})}
}

func (c ImageCollection) Value() *Value { return c.v }

func ConstantImage(value float64) Image {
	return Image{Invoke("Image.constant", map[string]*Value{"value": Constant(value)})}
}

func (i Image) Multiply(factor float64) Image {
	return Image{Invoke("Image.multiply", map[string]*Value{
		"image1": i.v,
		"image2": ConstantImage(factor).v,
	})}
}

// NormalizedDifference computes (a - b) / (a + b) per pixel.
func (i Image) NormalizedDifference(a, b string) Image {
	return Image{Invoke("Image.normalizedDifference", map[string]*Value{
		"input":     i.v,
		"bandNames": Constant([]string{a, b}),
	})}
}

func (i Image) Rename(name string) Image {
	return Image{Invoke("Image.rename", map[string]*Value{
		"input": i.v,
		"names": Constant([]string{name}),
	})}
}

// Gt is 1 where the pixel is strictly greater than threshold, 0 elsewhere.
func (i Image) Gt(threshold float64) Image {
	return Image{Invoke("Image.gt", map[string]*Value{
		"image1": i.v,
		"image2": ConstantImage(threshold).v,
	})}
}

// UpdateMask masks out pixels where mask is zero.
func (i Image) UpdateMask(mask Image) Image {
	return Image{Invoke("Image.updateMask", map[string]*Value{
		"image": i.v,
		"mask":  mask.v,
	})}
}

func (i Image) Value() *Value { return i.v }
