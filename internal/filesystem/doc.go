/*
Package filesystem wraps the filesystem calls imagelite makes against source
images and the cache with retry logic for NFS stale file handle errors.

Sources and cache roots are often network mounts. When an NFS server
re-exports a directory, open handles go stale and calls fail with ESTALE
(errno 116 on Linux). Those calls are retried with exponential backoff; every
other error is returned immediately.

	data, err := filesystem.ReadFileWithRetry(src, filesystem.DefaultRetryConfig())

Metric labels come from a [VolumeResolver] that maps paths to a volume name
by longest prefix:

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
	    "source": cfg.DocumentRoot,
	    "cache":  cfg.CacheDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())
*/
package filesystem
