package dto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/photo-gallery/internal/domain/apperror"
	"github.com/dreschagin/photo-gallery/internal/domain/entity"
)

func TestToPhotoDTOs_EmptyEncodesAsArray(t *testing.T) {
	body, err := json.Marshal(ToPhotoDTOs(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(body) != "[]" {
		t.Fatalf("expected [], got %s", body)
	}
}

func TestToPhotoDTOs_FieldNames(t *testing.T) {
	photo, err := entity.NewPhoto("cat.jpg", "https://example.com/cat.jpg?sig", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("NewPhoto: %v", err)
	}

	body, err := json.Marshal(ToPhotoDTOs([]*entity.Photo{photo}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `[{"filename":"cat.jpg","url":"https://example.com/cat.jpg?sig"}]`
	if string(body) != want {
		t.Fatalf("expected %s, got %s", want, body)
	}
}

func TestFromError_HidesProviderText(t *testing.T) {
	err := apperror.Wrap(errors.New("AccessDenied: arn:aws:iam::123:role/x"), apperror.KindPermission, "s3.list", "")

	resp := FromError(err)
	if resp.Error.Code != string(apperror.KindPermission) {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}
	if resp.Error.Message != apperror.DefaultMessage(apperror.KindPermission) {
		t.Fatalf("unexpected message: %s", resp.Error.Message)
	}
	if resp.Error.Retryable {
		t.Fatalf("permission errors are not retryable")
	}
}
