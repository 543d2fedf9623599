// Package metrics は分類予測の評価指標を提供します。
// 入れ子交差検証ではモデル選択とアンサンブルの重み付けに加重AUCを使用します。
package metrics

import (
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// undefinedAUC はクラスが1種類しかない場合に返す値です。
const undefinedAUC = 0.5

// AUC は二値ラベル yTrue とスコア yPred から ROC 曲線下面積を計算する
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("AUC", "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewValueError("AUC", "yTrue and yPred have different lengths")
	}

	scores := make([]float64, n)
	labels := make([]bool, n)
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 0:
		case 1:
			labels[i] = true
		default:
			return 0, errors.NewValueError("AUC", "labels must be 0 or 1")
		}
		scores[i] = yPred.AtVec(i)
	}
	return rocArea(scores, labels), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する（先頭列を使用）
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	if isEmpty(yTrue) || isEmpty(yPred) {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	return AUC(firstColumn(yTrue), firstColumn(yPred))
}

// rocArea はスコアと正解ラベルから台形則でAUCを求める。
// 入力スライスは並べ替えられる。
func rocArea(scores []float64, labels []bool) float64 {
	var pos, neg int
	for _, l := range labels {
		if l {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return undefinedAUC
	}

	stat.SortWeightedLabeled(scores, labels, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, labels, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	classErr, err := ClassificationError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - classErr, nil
}

// ClassificationError は誤分類率を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("ClassificationError", "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewValueError("ClassificationError", "yTrue and yPred have different lengths")
	}

	var wrong int
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) != yPred.AtVec(i) {
			wrong++
		}
	}
	return float64(wrong) / float64(n), nil
}

// WeightedAUC はクラスごとの one-vs-rest AUC を実際のクラス頻度で重み付けした平均を返す。
// 予測に含まれる実際のクラスが1種類以下の場合は 0.5 を返す。
func WeightedAUC(p *model.Predictions) (float64, error) {
	if p == nil || p.Len() == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "weighted AUC")
	}

	classes := p.Classes()
	preds := p.All()
	counts := make([]int, len(classes))
	for _, pred := range preds {
		for c, class := range classes {
			if pred.Actual == class {
				counts[c]++
			}
		}
	}

	present := 0
	for _, n := range counts {
		if n > 0 {
			present++
		}
	}
	if present < 2 {
		return undefinedAUC, nil
	}

	var weighted, total float64
	for c, class := range classes {
		if counts[c] == 0 {
			continue
		}
		scores := make([]float64, len(preds))
		labels := make([]bool, len(preds))
		for i, pred := range preds {
			if c < len(pred.Probabilities) {
				scores[i] = pred.Probabilities[c]
			}
			labels[i] = pred.Actual == class
		}
		weighted += float64(counts[c]) * rocArea(scores, labels)
		total += float64(counts[c])
	}
	return weighted / total, nil
}

// PredictionAccuracy は予測集合の正解率を返す。
func PredictionAccuracy(p *model.Predictions) (float64, error) {
	if p == nil || p.Len() == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "accuracy")
	}
	var correct int
	for _, pred := range p.All() {
		if pred.Correct() {
			correct++
		}
	}
	return float64(correct) / float64(p.Len()), nil
}

// WeightedAUCScorer は model.Scorer として加重AUCを提供します。
type WeightedAUCScorer struct{}

// Score implements model.Scorer.
func (WeightedAUCScorer) Score(p *model.Predictions) (float64, error) {
	return WeightedAUC(p)
}

func isEmpty(m mat.Matrix) bool {
	r, c := m.Dims()
	return r == 0 || c == 0
}

func firstColumn(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
