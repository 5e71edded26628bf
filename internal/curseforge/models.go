package curseforge

import (
	"time"

	"github.com/Dig-pestroyer/NyxPatch/internal/models"
)

type ProjectLinks struct {
	WebsiteUrl string `json:"websiteUrl"`
	WikiUrl    string `json:"wikiUrl"`
	IssuesUrl  string `json:"issuesUrl"`
	SourceUrl  string `json:"sourceUrl"`
}

type Author struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
	Url  string `json:"url"`
}

type FileReleaseType int

const (
	Release FileReleaseType = 1
	Beta    FileReleaseType = 2
	Alpha   FileReleaseType = 3
)

// ReleaseChannel converts the numeric curseforge release type to the
// shared channel enum.
func (releaseType FileReleaseType) ReleaseChannel() models.ReleaseType {
	switch releaseType {
	case Release:
		return models.Release
	case Beta:
		return models.Beta
	case Alpha:
		return models.Alpha
	}
	return models.Release
}

type FileStatus int

const (
	Processing      FileStatus = 1
	ChangesRequired FileStatus = 2
	UnderReview     FileStatus = 3
	Approved        FileStatus = 4
	Rejected        FileStatus = 5
	MalwareDetected FileStatus = 6
	Deleted         FileStatus = 7
	Archived        FileStatus = 8
	Testing         FileStatus = 9
	Released        FileStatus = 10
)

type FileHashAlgorithm int

const (
	SHA1 FileHashAlgorithm = 1
	MD5  FileHashAlgorithm = 2
)

type FileHash struct {
	Algorithm FileHashAlgorithm `json:"algo"`
	Hash      string            `json:"value"`
}

type File struct {
	Id              int             `json:"id"`
	GameId          int             `json:"gameId"`
	ProjectId       int             `json:"modId"`
	IsAvailable     bool            `json:"isAvailable"`
	DisplayName     string          `json:"displayName"`
	FileName        string          `json:"fileName"`
	ReleaseType     FileReleaseType `json:"releaseType"`
	FileStatus      FileStatus      `json:"fileStatus"`
	Hashes          []FileHash      `json:"hashes"`
	FileDate        time.Time       `json:"fileDate"`
	FileLength      int64           `json:"fileLength"`
	DownloadUrl     string          `json:"downloadUrl"`
	GameVersions    []string        `json:"gameVersions"`
	FileFingerprint int             `json:"fileFingerprint"`
	Fingerprint     int             `json:"fingerprint"`
}

// Sha1 returns the file's sha1 hash if the api reported one.
func (file File) Sha1() string {
	for _, hash := range file.Hashes {
		if hash.Algorithm == SHA1 {
			return hash.Hash
		}
	}
	return ""
}

type Project struct {
	Id            int          `json:"id"`
	GameId        int          `json:"gameId"`
	Name          string       `json:"name"`
	Slug          string       `json:"slug"`
	Links         ProjectLinks `json:"links"`
	Summary       string       `json:"summary"`
	DownloadCount int          `json:"downloadCount"`
	Authors       []Author     `json:"authors"`
	MainFileId    int          `json:"mainFileId"`
	LatestFiles   []File       `json:"latestFiles"`
	DateCreated   time.Time    `json:"dateCreated"`
	DateModified  time.Time    `json:"dateModified"`
	DateReleased  time.Time    `json:"dateReleased"`
}

type Pagination struct {
	Cursor      int `json:"index"`
	PageSize    int `json:"pageSize"`
	ResultCount int `json:"resultCount"`
	TotalCount  int `json:"totalCount"`
}

type ModLoaderType int

const (
	Any        ModLoaderType = 0
	Forge      ModLoaderType = 1
	Cauldron   ModLoaderType = 2
	LiteLoader ModLoaderType = 3
	Fabric     ModLoaderType = 4
	Quilt      ModLoaderType = 5
	NeoForge   ModLoaderType = 6
)

// LoaderType maps the shared loader enum to the curseforge api's numeric
// loader id.
func LoaderType(loader models.Loader) ModLoaderType {
	switch loader {
	case models.FORGE:
		return Forge
	case models.FABRIC:
		return Fabric
	case models.QUILT:
		return Quilt
	}
	return Any
}

type GameId int

const (
	Minecraft GameId = 432
)

// ModsClassID is the curseforge class id for the "Mods" section.
const ModsClassID = 6

type FingerprintResult struct {
	Matches   []File `json:"matches"`
	Unmatched []int  `json:"unmatched"`
}
