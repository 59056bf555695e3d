package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/sintegrate/connector-sdk/pkg/errors"
	"github.com/sintegrate/connector-sdk/pkg/schemas"
)

// StoreCameraTrapImage uploads a camera-trap image and points the
// observation's ImageURI at the stored object. Camera-trap connectors
// call this before handing the observation to the runner, so the routing
// services can fetch the image by name.
//
// Object names are namespaced by integration and device so two providers
// using the same file names cannot collide.
func StoreCameraTrapImage(ctx context.Context, store CloudStorage, ct *schemas.CameraTrap, fileName string, contents io.Reader) error {
	if fileName == "" {
		return errors.New(errors.ErrorTypeValidation, "image file name is required")
	}
	if ct.DeviceID == "" || ct.IntegrationID == "" {
		return errors.New(errors.ErrorTypeValidation, "camera trap requires device_id and integration_id before upload")
	}

	name := ObjectName(ct.IntegrationID, ct.DeviceID, fileName)
	if err := store.Upload(ctx, name, contents); err != nil {
		return err
	}
	ct.ImageURI = name
	return nil
}

// ObjectName builds the storage object name for an attachment.
func ObjectName(integrationID, deviceID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s", integrationID, deviceID, path.Base(fileName))
}
