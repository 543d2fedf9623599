package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// 予測ファイルの列名
const (
	instanceIDColumn  = "Instance_ID"
	actualColumn      = "Dependent_Variable_Value"
	predictionColumn  = "Prediction"
	probabilitySuffix = "_Probability"
)

// PredictionsCodec は予測結果のタブ区切りテキスト形式を扱う
//
// 形式:
//
//	Instance_ID<TAB>Dependent_Variable_Value<TAB>Prediction<TAB><class>_Probability...
//
// 行はインスタンスIDの自然順で並ぶ。
type PredictionsCodec struct {
	// Classes は空ファイルを読んだときに使うクラス一覧
	Classes []string
}

// Encode は予測結果を書き込む
func (c PredictionsCodec) Encode(w io.Writer, p *Predictions) error {
	bw := bufio.NewWriter(w)

	header := []string{instanceIDColumn, actualColumn, predictionColumn}
	for _, class := range p.classes {
		header = append(header, class+probabilitySuffix)
	}
	if _, err := fmt.Fprintln(bw, strings.Join(header, "\t")); err != nil {
		return errors.Wrap(err, "failed to write predictions header")
	}

	for _, pred := range p.All() {
		row := make([]string, 0, 3+len(pred.Probabilities))
		row = append(row, pred.InstanceID, pred.Actual, pred.Predicted)
		for _, prob := range pred.Probabilities {
			row = append(row, strconv.FormatFloat(prob, 'f', 6, 64))
		}
		if _, err := fmt.Fprintln(bw, strings.Join(row, "\t")); err != nil {
			return errors.Wrap(err, "failed to write prediction")
		}
	}
	return bw.Flush()
}

// Decode は予測結果を読み込む。空の入力は空の予測集合になる。
func (c PredictionsCodec) Decode(r io.Reader) (*Predictions, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to read predictions header")
		}
		return NewPredictions(c.Classes), nil
	}

	header := strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t")
	if len(header) < 3 || header[0] != instanceIDColumn {
		return nil, errors.NewValueError("DecodePredictions", "unexpected header: "+scanner.Text())
	}
	classes := make([]string, 0, len(header)-3)
	for _, col := range header[3:] {
		classes = append(classes, strings.TrimSuffix(col, probabilitySuffix))
	}

	p := NewPredictions(classes)
	for line := 2; scanner.Scan(); line++ {
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != len(header) {
			return nil, errors.NewValueError("DecodePredictions",
				fmt.Sprintf("line %d has %d columns, expected %d", line, len(fields), len(header)))
		}
		probs := make([]float64, len(classes))
		for i, raw := range fields[3:] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: invalid probability", line)
			}
			probs[i] = v
		}
		p.Add(Prediction{InstanceID: fields[0], Actual: fields[1], Predicted: fields[2], Probabilities: probs})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read predictions")
	}
	return p, nil
}

// SavePredictions は予測結果をファイルに保存する
func SavePredictions(path string, p *Predictions) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := (PredictionsCodec{}).Encode(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadPredictions はファイルから予測結果を読み込む
// ファイルが存在しない場合は空の予測集合を返す
func LoadPredictions(path string, classes []string) (*Predictions, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewPredictions(classes), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	return PredictionsCodec{Classes: classes}.Decode(f)
}
