package centroid

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// standardScaler は特徴量ごとに平均0、標準偏差1へ変換する。
// 欠損値 (NaN) は統計量の計算から除外する。
type standardScaler struct {
	mean  []float64
	scale []float64
}

// fitScaler は訓練データの列ごとの平均と母標準偏差を求める
func fitScaler(X *mat.Dense) *standardScaler {
	r, c := X.Dims()
	s := &standardScaler{mean: make([]float64, c), scale: make([]float64, c)}
	col := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		col = col[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		s.mean[j], s.scale[j] = 0, 1
		if len(col) == 0 {
			continue
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		s.mean[j] = mean
		// 分散がほぼ0の列はスケーリングしない
		if std > 1e-8 {
			s.scale[j] = std
		}
	}
	return s
}

// transform は標準化した新しい行列を返す。欠損値は平均 (0) で補完する。
func (s *standardScaler) transform(X *mat.Dense) *mat.Dense {
	r, c := X.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return 0
		}
		return (v - s.mean[j]) / s.scale[j]
	}, X)
	return out
}
