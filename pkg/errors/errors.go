// Package errors は nestcv 全体のエラーハンドリングを提供します。
// cockroachdb/errors をラップし、交差検証エンジン固有の構造化エラー型を定義します。
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// ConfigurationError は実験設定が不正な場合の致命的エラーです。
// 設定を修正しない限り回復できないため、実行は即座に中断されます。
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("nestcv: configuration %s: %s", e.Setting, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("setting", e.Setting).
		Str("reason", e.Reason).
		Str("type", "ConfigurationError")
}

// NewConfigurationError は新しいConfigurationErrorを作成し、スタックトレースを付与します。
func NewConfigurationError(setting, reason string) error {
	return errors.WithStack(&ConfigurationError{Setting: setting, Reason: reason})
}

// FoldError は存在しない、または許可されていないフォールド番号が指定された場合のエラーです。
// 呼び出し側のプログラミングエラーを示します。
type FoldError struct {
	Op   string
	Fold int
	Kind string
}

func (e *FoldError) Error() string {
	return fmt.Sprintf("nestcv: %s: fold %d is not valid for a %s assignment", e.Op, e.Fold, e.Kind)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FoldError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("fold", e.Fold).
		Str("kind", e.Kind).
		Str("type", "FoldError")
}

// NewFoldError は新しいFoldErrorを作成し、スタックトレースを付与します。
func NewFoldError(op string, fold int, kind string) error {
	return errors.WithStack(&FoldError{Op: op, Fold: fold, Kind: kind})
}

// リーク検査の種類
const (
	LeakageNonTestInstance   = "non_test_instance"
	LeakageMissingPrediction = "missing_prediction"
	LeakageCountMismatch     = "count_mismatch"
)

// LeakageError は予測結果が訓練・テストの分割と整合しない場合のエラーです。
// 訓練インスタンスへの予測、テストインスタンスの予測欠落、件数不一致を表します。
type LeakageError struct {
	Kind       string
	InstanceID string
	Expected   int
	Got        int
}

func (e *LeakageError) Error() string {
	switch e.Kind {
	case LeakageNonTestInstance:
		return fmt.Sprintf("nestcv: prediction made for instance %s which is not a test instance", e.InstanceID)
	case LeakageMissingPrediction:
		return fmt.Sprintf("nestcv: no prediction was made for test instance %s", e.InstanceID)
	default:
		return fmt.Sprintf("nestcv: expected %d predictions, got %d", e.Expected, e.Got)
	}
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *LeakageError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("kind", e.Kind).
		Str("instance_id", e.InstanceID).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("type", "LeakageError")
}

// NewLeakageError は新しいLeakageErrorを作成し、スタックトレースを付与します。
func NewLeakageError(kind, instanceID string, expected, got int) error {
	return errors.WithStack(&LeakageError{Kind: kind, InstanceID: instanceID, Expected: expected, Got: got})
}

// VerificationError はファイルへの書き込み後、読み戻した内容が一致しない場合のエラーです。
type VerificationError struct {
	Path string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("nestcv: contents read back from %s do not match what was written", e.Path)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *VerificationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("type", "VerificationError")
}

// NewVerificationError は新しいVerificationErrorを作成し、スタックトレースを付与します。
func NewVerificationError(path string) error {
	return errors.WithStack(&VerificationError{Path: path})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("nestcv: %s: %s", e.Op, e.Message)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValueError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("message", e.Message).
		Str("type", "ValueError")
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// IsFatal はエラーチェーンに ConfigurationError が含まれるかを判定します。
func IsFatal(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrNoFeaturesSelected は特徴量選択の結果が空の場合のエラーです。
	ErrNoFeaturesSelected = New("no features were selected")
)
