package main

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/avmeta/internal/domain"
	"github.com/John-Robertt/avmeta/internal/infra/fsx"
)

var imagesCmd = &cobra.Command{
	Use:   "images <id>",
	Short: "列出影片（或演员）的远端图片",
	Long:  `images 输出记录的主图列表；指定 --download <dir> 时经 detail 通道下载到该目录。`,
	Args:  cobra.ExactArgs(1),
	RunE:  runImages,
}

func init() {
	imagesCmd.Flags().Bool("person", false, "按演员 id 查询")
	imagesCmd.Flags().String("download", "", "下载到该目录")
	rootCmd.AddCommand(imagesCmd)
}

func runImages(cmd *cobra.Command, args []string) error {
	id := args[0]
	person, _ := cmd.Flags().GetBool("person")
	dir, _ := cmd.Flags().GetString("download")

	var (
		imgs []domain.RemoteImage
		err  error
	)
	if person {
		imgs, err = app.resolver.PersonImages(cmd.Context(), id)
	} else {
		imgs, err = app.resolver.MovieImages(cmd.Context(), id)
	}
	if err != nil {
		return err
	}

	if dir != "" {
		for _, img := range imgs {
			if err := download(cmd, dir, id, img); err != nil {
				return err
			}
		}
	}
	if imgs == nil {
		imgs = []domain.RemoteImage{}
	}
	return writeJSON(cmd.OutOrStdout(), imgs)
}

func download(cmd *cobra.Command, dir, id string, img domain.RemoteImage) error {
	resp, err := app.resolver.ImageResponse(cmd.Context(), img.URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取图片失败：%w", err)
	}
	name := imageName(id, img)
	if err := fsx.WriteFileAtomic(dir, name, b); err != nil {
		return fmt.Errorf("写图片失败：%w", err)
	}
	app.log.Info("image saved", "id", id, "file", name, "bytes", len(b))
	return nil
}

// imageName：<id>-<type><ext>；扩展名取自 URL，缺省 .jpg。
func imageName(id string, img domain.RemoteImage) string {
	u := img.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	ext := strings.ToLower(path.Ext(u))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
	default:
		ext = ".jpg"
	}
	return fmt.Sprintf("%s-%s%s", id, img.Type, ext)
}
