/*
Package clients provides a client for the deepfake upload API.

UploadClient posts an image to /upload and decodes the response. Verdicts
turns the classifier output into one verdict per detected face: a face whose
is_deepfake probability exceeds 0.5 is a deepfake.

	client := clients.NewUploadClient("http://localhost:8080", 60*time.Second)
	resp, err := client.Upload(ctx, imageBytes)
	if err != nil {
	    return err
	}
	verdicts, err := clients.Verdicts(resp)
*/
package clients
