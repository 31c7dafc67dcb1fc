package listview

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
)

// String formats the array element by element, for example
// "[[30 40] [10] (null)]".
func (a *Array[O]) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	i := 0
	for v := range a.Iter() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		i++
		if v == nil {
			sb.WriteString(array.NullValueStr)
			continue
		}
		sb.WriteString(v.String())
		v.Release()
	}
	sb.WriteByte(']')
	return sb.String()
}
