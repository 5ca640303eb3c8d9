package storage

type IService interface {
	// StoreFile takes ownership of a local file and returns where it now lives.
	StoreFile(fileName string) (string, error)
}
